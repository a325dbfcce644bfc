package exchange

import (
	"fmt"
	"sort"

	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

// 测试公用的适配器与类型。
// point 为原子构造适配器的典型：参数齐备后一次构造完成。
// box 为可占位两阶段构造的典型：可以出现在对象图的环上。

type point struct {
	X, Y float64
}

type pointAdapter struct{}

var _ Adapter = pointAdapter{}

func (pointAdapter) TypeName() string {
	return "geom.Point"
}

func (pointAdapter) Pack(v any) ([]any, error) {
	p, ok := v.(*point)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not a *point")
	}
	return []any{p.X, p.Y}, nil
}

func (pointAdapter) Unpack(args []any) (any, error) {
	if len(args) != 2 {
		return nil, merr.WrapErrWireInvalid("geom.Point expects 2 args")
	}
	x, okX := toFloat(args[0])
	y, okY := toFloat(args[1])
	if !okX || !okY {
		return nil, merr.WrapErrWireInvalid("geom.Point args are not numbers")
	}
	return &point{X: x, Y: y}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case jsonNumberLike:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

type jsonNumberLike interface {
	Float64() (float64, error)
}

// box 持有任意元素，支持占位后填充。
type box struct {
	Items []any
}

type boxAdapter struct{}

var _ CyclicAdapter = boxAdapter{}

func (boxAdapter) TypeName() string {
	return "test.Box"
}

func (boxAdapter) Pack(v any) ([]any, error) {
	b, ok := v.(*box)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not a *box")
	}
	return b.Items, nil
}

func (boxAdapter) Unpack(args []any) (any, error) {
	return &box{Items: args}, nil
}

func (boxAdapter) Placeholder() any {
	return &box{}
}

func (boxAdapter) Fill(placeholder any, args []any) error {
	b, ok := placeholder.(*box)
	if !ok {
		return merr.WrapErrParameterInvalid("placeholder", "not a *box")
	}
	b.Items = args
	return nil
}

// atomicBox 与 box 结构相同，但只支持原子构造，用于环失败路径。
type atomicBox struct {
	Items []any
}

type atomicBoxAdapter struct{}

var _ Adapter = atomicBoxAdapter{}

func (atomicBoxAdapter) TypeName() string {
	return "test.AtomicBox"
}

func (atomicBoxAdapter) Pack(v any) ([]any, error) {
	b, ok := v.(*atomicBox)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not an *atomicBox")
	}
	return b.Items, nil
}

func (atomicBoxAdapter) Unpack(args []any) (any, error) {
	return &atomicBox{Items: args}, nil
}

// intSet 是 map 底层类型的可交换类型，覆盖非指针亦非结构体的身份形态。
type intSet map[int]bool

type intSetAdapter struct{}

var _ Adapter = intSetAdapter{}

func (intSetAdapter) TypeName() string {
	return "test.IntSet"
}

func (intSetAdapter) Pack(v any) ([]any, error) {
	set, ok := v.(intSet)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not an intSet")
	}
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args, nil
}

func (intSetAdapter) Unpack(args []any) (any, error) {
	set := make(intSet, len(args))
	for _, arg := range args {
		f, ok := toFloat(arg)
		if !ok {
			return nil, merr.WrapErrWireInvalid("test.IntSet args are not numbers")
		}
		set[int(f)] = true
	}
	return set, nil
}

// newTestRegistry 创建注册了全部测试适配器并封印的注册表。
func newTestRegistry() *Registry {
	r := NewRegistry()
	for _, err := range []error{
		r.Register(TypeOf[*point](), pointAdapter{}),
		r.Register(TypeOf[*box](), boxAdapter{}),
		r.Register(TypeOf[*atomicBox](), atomicBoxAdapter{}),
		r.Register(TypeOf[intSet](), intSetAdapter{}),
	} {
		if err != nil {
			panic(fmt.Sprintf("register test adapter: %v", err))
		}
	}
	r.Seal()
	return r
}
