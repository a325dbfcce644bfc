package exchange

import (
	"sync"

	"github.com/lk2023060901/telepath-go/pkg/exchange/wire"
	"github.com/lk2023060901/telepath-go/pkg/util/conc"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

// 批量接口：多个相互独立的根值各自使用独立的打包/解包上下文，
// 因此可以安全并发执行；注册表封印后只读，共享无需加锁。

type batchOption struct {
	// parallelism 为并发度。<= 0 时使用 GOMAXPROCS。
	parallelism int
}

// BatchOption 用于配置批量操作的选项函数。
type BatchOption func(opt *batchOption)

func WithParallelism(n int) BatchOption {
	return func(opt *batchOption) {
		opt.parallelism = n
	}
}

// PackAll 并发打包一组相互独立的根值，结果与输入一一对应。
// 任一根值失败时整体失败，不返回部分结果。
func (r *Registry) PackAll(values []any, opts ...BatchOption) ([]wire.Node, error) {
	nodes := make([]wire.Node, len(values))
	err := r.runBatch(len(values), opts, func(i int) error {
		node, err := r.Pack(values[i])
		if err != nil {
			return err
		}
		nodes[i] = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// UnpackAll 并发解包一组相互独立的线格式树，结果与输入一一对应。
// 任一棵树失败时整体失败，不返回部分结果。
func (r *Registry) UnpackAll(nodes []wire.Node, opts ...BatchOption) ([]any, error) {
	values := make([]any, len(nodes))
	err := r.runBatch(len(nodes), opts, func(i int) error {
		value, err := r.Unpack(nodes[i])
		if err != nil {
			return err
		}
		values[i] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (r *Registry) runBatch(n int, opts []BatchOption, task func(i int) error) error {
	if n == 0 {
		return nil
	}

	opt := &batchOption{}
	for _, o := range opts {
		o(opt)
	}

	pool, err := conc.NewPool(opt.parallelism, conc.WithConcealPanic(true))
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			errs[i] = task(i)
		}); submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	return merr.Combine(errs...)
}
