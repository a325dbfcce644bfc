package exchange

import (
	"sort"
	"time"

	"github.com/lk2023060901/telepath-go/pkg/exchange/wire"
	"github.com/lk2023060901/telepath-go/pkg/metrics"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
	"github.com/lk2023060901/telepath-go/pkg/util/typeutil"
)

// unpackContext 是单次解包操作的引用解析表。
//
// objects 登记每个下标首次重建出的对象；占位符在参数递归之前登记，
// 使环内回引用拿到同一实例。pending 标记正在构造、但尚无可返回
// 实例的下标：回引用命中 pending 即为“原子构造适配器参与环”，
// 按协议直接失败。
type unpackContext struct {
	objects      map[int]any
	pending      typeutil.Set[int]
	pendingNames map[int]string
	next         int
}

func newUnpackContext() *unpackContext {
	return &unpackContext{
		objects:      make(map[int]any),
		pending:      typeutil.NewSet[int](),
		pendingNames: make(map[int]string),
	}
}

// Unpack 将线格式树重建为应用值。
//
// 每个引用下标只重建一次，树内所有指向同一下标的位置
// 拿到同一实例，镜像打包前的身份共享关系。
// 任何失败整体中止，不返回部分重建的图。
func (r *Registry) Unpack(node wire.Node) (any, error) {
	start := time.Now()

	ctx := newUnpackContext()
	value, err := r.unpackNode(ctx, node)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.ExchangeOpLatency.WithLabelValues(metrics.UnpackOpLabel).Observe(elapsed)
	if err != nil {
		metrics.ExchangeOpTotal.WithLabelValues(metrics.UnpackOpLabel, metrics.FailLabel).Inc()
		return nil, err
	}
	metrics.ExchangeOpTotal.WithLabelValues(metrics.UnpackOpLabel, metrics.SuccessLabel).Inc()
	return value, nil
}

// Unpack 使用进程级注册表解包。
func Unpack(node wire.Node) (any, error) {
	return defaultRegistry.Unpack(node)
}

func (r *Registry) unpackNode(ctx *unpackContext, node wire.Node) (any, error) {
	switch n := node.(type) {
	case nil:
		return nil, nil

	case *wire.Ref:
		return r.resolveRef(ctx, n)

	case *wire.Compound:
		return r.unpackCompound(ctx, n)

	case *wire.Dict:
		// 逃逸包装里的是原始数据映射，键不再按协议键解释。
		return r.unpackObject(ctx, n.Value)

	case *wire.Object:
		return r.unpackObject(ctx, n)

	case []wire.Node:
		return r.unpackSlice(ctx, n)

	case map[string]any:
		// 兼容经 encoding/json 等通用解码得到的树：
		// 先归一化为保序映射，再识别协议形态。
		classified, err := wire.Classify(objectFromStdMap(n))
		if err != nil {
			return nil, err
		}
		if obj, ok := classified.(*wire.Object); ok {
			return r.unpackObject(ctx, obj)
		}
		return r.unpackNode(ctx, classified)

	default:
		// 基本类型透传。
		return node, nil
	}
}

func (r *Registry) unpackSlice(ctx *unpackContext, nodes []wire.Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := r.unpackNode(ctx, n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Registry) unpackObject(ctx *unpackContext, obj *wire.Object) (*typeutil.OrderedMap[string, any], error) {
	out := typeutil.NewOrderedMap[string, any]()
	var innerErr error
	obj.Range(func(k string, v any) bool {
		value, err := r.unpackNode(ctx, v)
		if err != nil {
			innerErr = err
			return false
		}
		out.Set(k, value)
		return true
	})
	if innerErr != nil {
		return nil, innerErr
	}
	return out, nil
}

func (r *Registry) unpackCompound(ctx *unpackContext, n *wire.Compound) (any, error) {
	idx := n.Index
	if idx < 0 {
		// 节点未携带 _id 时按遍历顺序补齐，两端遍历顺序一致。
		idx = ctx.next
	}
	if _, ok := ctx.objects[idx]; ok || ctx.pending.Contain(idx) {
		return nil, merr.WrapErrWireInvalid("duplicate compound declaration", n.Type)
	}
	if idx >= ctx.next {
		ctx.next = idx + 1
	}

	adapter, err := r.RebuilderFor(n.Type)
	if err != nil {
		return nil, err
	}

	ctx.pending.Insert(idx)
	ctx.pendingNames[idx] = n.Type

	if cyclic, ok := adapter.(CyclicAdapter); ok {
		// 两阶段构造：占位实例先落表，环内回引用即可解析。
		placeholder := cyclic.Placeholder()
		ctx.objects[idx] = placeholder

		args, err := r.unpackSlice(ctx, n.Args)
		if err != nil {
			return nil, err
		}
		if err := cyclic.Fill(placeholder, args); err != nil {
			return nil, err
		}
		ctx.pending.Remove(idx)
		delete(ctx.pendingNames, idx)
		return placeholder, nil
	}

	args, err := r.unpackSlice(ctx, n.Args)
	if err != nil {
		return nil, err
	}
	obj, err := adapter.Unpack(args)
	if err != nil {
		return nil, err
	}
	ctx.objects[idx] = obj
	ctx.pending.Remove(idx)
	delete(ctx.pendingNames, idx)
	return obj, nil
}

func (r *Registry) resolveRef(ctx *unpackContext, n *wire.Ref) (any, error) {
	if obj, ok := ctx.objects[n.Index]; ok {
		return obj, nil
	}
	if ctx.pending.Contain(n.Index) {
		// 被回指的节点还在构造中且没有占位能力：
		// 原子构造的适配器无法参与环。
		return nil, merr.WrapErrCyclicDependency(n.Index, ctx.pendingNames[n.Index])
	}
	return nil, merr.WrapErrWireInvalid("_ref to undeclared index")
}

func objectFromStdMap(m map[string]any) *wire.Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := wire.NewObject()
	for _, k := range keys {
		obj.Set(k, m[k])
	}
	return obj
}
