package exchange

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/lk2023060901/telepath-go/pkg/exchange/wire"
	"github.com/lk2023060901/telepath-go/pkg/metrics"
	"github.com/lk2023060901/telepath-go/pkg/util/typeutil"
)

// packContext 是单次打包操作的身份去重表。
//
// 仅指针形态的值（指针、map、chan）参与去重：这些形态的底层地址
// 即“对象身份”。map 值本身不可比较、不能作为 map 键，
// 因此表以（类型，底层地址）二元组为键而非接口值本身。
// 值形态（如结构体）在 Go 中没有稳定身份，每次出现都分配新下标；
// func 的 Pointer 返回代码地址，同一函数的不同闭包会相互混淆，
// 同样不参与去重。
// packContext 归单次 Pack 调用独占，结束即废弃，绝不跨操作共享。
type packContext struct {
	refs map[identity]int
	next int
}

// identity 唯一标识一个指针形态的值。
// 仅比较底层地址会混淆不同类型的同址值（如结构体指针与其首字段指针），
// 因此类型参与键。
type identity struct {
	typ reflect.Type
	ptr uintptr
}

func newPackContext() *packContext {
	return &packContext{
		refs: make(map[identity]int),
	}
}

func (c *packContext) lookup(v any) (int, bool) {
	key, ok := identityOf(v)
	if !ok {
		return 0, false
	}
	idx, ok := c.refs[key]
	return idx, ok
}

// track 为 v 分配下一个顺序下标。
// 必须在递归打包参数之前调用，环上的回引用依赖这一顺序。
func (c *packContext) track(v any) int {
	idx := c.next
	c.next++
	if key, ok := identityOf(v); ok {
		c.refs[key] = idx
	}
	return idx
}

func identityOf(v any) (identity, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	default:
		return identity{}, false
	}
}

// Pack 将应用值打包为线格式树。
//
// 前序深度优先遍历：基本类型与序列/映射透传（保序），
// 其余值经注册表解析适配器后输出 Compound 节点；
// 同一身份的第二次出现输出 Ref 回引用而不再展开。
// 任何失败整体中止，不返回部分结果。
func (r *Registry) Pack(v any) (wire.Node, error) {
	start := time.Now()

	ctx := newPackContext()
	node, err := r.packNode(ctx, v)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.ExchangeOpLatency.WithLabelValues(metrics.PackOpLabel).Observe(elapsed)
	if err != nil {
		metrics.ExchangeOpTotal.WithLabelValues(metrics.PackOpLabel, metrics.FailLabel).Inc()
		return nil, err
	}
	metrics.ExchangeOpTotal.WithLabelValues(metrics.PackOpLabel, metrics.SuccessLabel).Inc()
	return node, nil
}

// Pack 使用进程级注册表打包。
func Pack(v any) (wire.Node, error) {
	return defaultRegistry.Pack(v)
}

func (r *Registry) packNode(ctx *packContext, v any) (wire.Node, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		// 字节串按原样透传，交由 JSON 层以 base64 编码。
		return tv, nil
	case *typeutil.OrderedMap[string, any]:
		return r.packOrdered(ctx, tv)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		// 数值与文本原样透传，不做任何强制转换。
		return v, nil

	case reflect.Slice, reflect.Array:
		out := make([]wire.Node, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			packed, err := r.packNode(ctx, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = packed
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return r.packAdapter(ctx, v)
		}
		return r.packStringMap(ctx, rv)

	default:
		return r.packAdapter(ctx, v)
	}
}

// packStringMap 透传一个字符串键映射。
// 内建 map 无序，键按字典序排列以保证两次打包产出一致。
func (r *Registry) packStringMap(ctx *packContext, rv reflect.Value) (wire.Node, error) {
	keys := make([]string, 0, rv.Len())
	mapIter := rv.MapRange()
	for mapIter.Next() {
		keys = append(keys, mapIter.Key().String())
	}
	sort.Strings(keys)

	obj := wire.NewObject()
	for _, k := range keys {
		packed, err := r.packNode(ctx, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
		if err != nil {
			return nil, err
		}
		obj.Set(k, packed)
	}
	return escapeReserved(obj), nil
}

func (r *Registry) packOrdered(ctx *packContext, m *typeutil.OrderedMap[string, any]) (wire.Node, error) {
	obj := wire.NewObject()
	var packErr error
	m.Range(func(k string, v any) bool {
		packed, err := r.packNode(ctx, v)
		if err != nil {
			packErr = err
			return false
		}
		obj.Set(k, packed)
		return true
	})
	if packErr != nil {
		return nil, packErr
	}
	return escapeReserved(obj), nil
}

// escapeReserved 对含保留前缀键的映射做 _dict 逃逸，
// 保证数据键永远不会被接收端误认为协议键。
func escapeReserved(obj *wire.Object) wire.Node {
	for _, k := range obj.Keys() {
		if strings.HasPrefix(k, "_") {
			return &wire.Dict{Value: obj}
		}
	}
	return obj
}

func (r *Registry) packAdapter(ctx *packContext, v any) (wire.Node, error) {
	if idx, ok := ctx.lookup(v); ok {
		metrics.ExchangeRefHits.Inc()
		return &wire.Ref{Index: idx}, nil
	}

	adapter, err := r.AdapterFor(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}

	// 身份登记先于参数递归，这一顺序使环上的回引用可解析。
	idx := ctx.track(v)

	args, err := adapter.Pack(v)
	if err != nil {
		return nil, err
	}
	packed := make([]wire.Node, len(args))
	for i, arg := range args {
		node, err := r.packNode(ctx, arg)
		if err != nil {
			return nil, err
		}
		packed[i] = node
	}
	return &wire.Compound{Index: idx, Type: adapter.TypeName(), Args: packed}, nil
}
