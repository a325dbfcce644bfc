package exchange

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/telepath-go/pkg/exchange/wire"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
	"github.com/lk2023060901/telepath-go/pkg/util/typeutil"
)

type UnpackerSuite struct {
	suite.Suite

	registry *Registry
}

func (s *UnpackerSuite) SetupSuite() {
	s.registry = newTestRegistry()
}

func (s *UnpackerSuite) roundTrip(v any) any {
	node, err := s.registry.Pack(v)
	s.Require().NoError(err)
	out, err := s.registry.Unpack(node)
	s.Require().NoError(err)
	return out
}

func (s *UnpackerSuite) TestRoundTripPrimitives() {
	for _, v := range []any{nil, true, 42, 3.14, "text"} {
		s.Equal(v, s.roundTrip(v))
	}
}

func (s *UnpackerSuite) TestRoundTripSequence() {
	out := s.roundTrip([]any{1, []any{"nested", false}, nil})
	s.Equal([]any{1, []any{"nested", false}, nil}, out)
}

func (s *UnpackerSuite) TestRoundTripMapping() {
	m := typeutil.NewOrderedMap[string, any]()
	m.Set("z", 1)
	m.Set("a", []any{2, 3})

	out, ok := s.roundTrip(m).(*typeutil.OrderedMap[string, any])
	s.True(ok)
	s.Equal([]string{"z", "a"}, out.Keys())
	v, _ := out.Get("a")
	s.Equal([]any{2, 3}, v)
}

func (s *UnpackerSuite) TestRoundTripReservedKeys() {
	// 含保留前缀键的数据映射经 _dict 逃逸后原样还原。
	out, ok := s.roundTrip(map[string]any{"_type": "sneaky", "_ref": 7}).(*typeutil.OrderedMap[string, any])
	s.True(ok)
	v, found := out.Get("_type")
	s.True(found)
	s.Equal("sneaky", v)
}

func (s *UnpackerSuite) TestRoundTripPoint() {
	out, ok := s.roundTrip(&point{1, 2}).(*point)
	s.True(ok)
	s.Equal(&point{1, 2}, out)
}

func (s *UnpackerSuite) TestIdentitySharingPreserved() {
	p := &point{1, 2}
	out := s.roundTrip([]any{p, p}).([]any)

	s.Len(out, 2)
	s.Same(out[0], out[1])
	s.Equal(&point{1, 2}, out[0])
}

func (s *UnpackerSuite) TestDistinctInstancesStayDistinct() {
	out := s.roundTrip([]any{&point{1, 2}, &point{1, 2}}).([]any)

	s.Len(out, 2)
	s.NotSame(out[0], out[1])
	s.Equal(out[0], out[1])
}

func (s *UnpackerSuite) TestMapKindIdentitySharing() {
	set := intSet{7: true}
	out := s.roundTrip([]any{set, set}).([]any)

	s.Len(out, 2)
	first, ok := out[0].(intSet)
	s.True(ok)
	s.True(first[7])

	// 两个位置持有同一底层 map：写入一侧另一侧可见。
	first[99] = true
	s.True(out[1].(intSet)[99])
}

func (s *UnpackerSuite) TestCycleViaPlaceholder() {
	b := &box{}
	b.Items = []any{b, "tail"}

	out, ok := s.roundTrip(b).(*box)
	s.True(ok)
	s.Len(out.Items, 2)
	s.Same(out, out.Items[0])
	s.Equal("tail", out.Items[1])
}

func (s *UnpackerSuite) TestIndirectCycle() {
	outer := &box{}
	inner := &box{Items: []any{outer}}
	outer.Items = []any{inner}

	got, ok := s.roundTrip(outer).(*box)
	s.True(ok)
	gotInner := got.Items[0].(*box)
	s.Same(got, gotInner.Items[0])
}

func (s *UnpackerSuite) TestCycleThroughAtomicAdapterFails() {
	// 原子构造适配器被环回指：参数无法在构造前备齐。
	node := &wire.Compound{
		Index: 0,
		Type:  "test.AtomicBox",
		Args:  []wire.Node{&wire.Ref{Index: 0}},
	}
	_, err := s.registry.Unpack(node)
	s.ErrorIs(err, merr.ErrCyclicDependency)
}

func (s *UnpackerSuite) TestAtomicAdapterOutsideCycleWorks() {
	b := &atomicBox{Items: []any{"payload"}}
	out, ok := s.roundTrip(b).(*atomicBox)
	s.True(ok)
	s.Equal([]any{"payload"}, out.Items)
}

func (s *UnpackerSuite) TestUnknownConstructor() {
	node := &wire.Compound{Index: 0, Type: "nonexistent", Args: nil}
	_, err := s.registry.Unpack(node)
	s.ErrorIs(err, merr.ErrConstructorUnknown)
}

func (s *UnpackerSuite) TestRefToUndeclaredIndex() {
	_, err := s.registry.Unpack(&wire.Ref{Index: 5})
	s.ErrorIs(err, merr.ErrWireInvalid)
}

func (s *UnpackerSuite) TestDuplicateDeclaration() {
	node := []wire.Node{
		&wire.Compound{Index: 0, Type: "geom.Point", Args: []wire.Node{1.0, 2.0}},
		&wire.Compound{Index: 0, Type: "geom.Point", Args: []wire.Node{3.0, 4.0}},
	}
	_, err := s.registry.Unpack(node)
	s.ErrorIs(err, merr.ErrWireInvalid)
}

func (s *UnpackerSuite) TestCompoundWithoutIDAssignedSequentially() {
	// 未携带 _id 的节点按遍历顺序编号，回引用照常解析。
	node := []wire.Node{
		&wire.Compound{Index: -1, Type: "geom.Point", Args: []wire.Node{1.0, 2.0}},
		&wire.Ref{Index: 0},
	}
	out, err := s.registry.Unpack(node)
	s.NoError(err)

	arr := out.([]any)
	s.Same(arr[0], arr[1])
}

func (s *UnpackerSuite) TestStdJSONTree() {
	// 经 encoding/json 等通用解码得到的 map 树同样可解包。
	tree := map[string]any{
		"_type": "geom.Point",
		"_args": []any{float64(1), float64(2)},
	}
	out, err := s.registry.Unpack(tree)
	s.NoError(err)
	s.Equal(&point{1, 2}, out)
}

func (s *UnpackerSuite) TestAdapterUnpackErrorPropagates() {
	node := &wire.Compound{Index: 0, Type: "geom.Point", Args: []wire.Node{"not-a-number"}}
	_, err := s.registry.Unpack(node)
	s.ErrorIs(err, merr.ErrWireInvalid)
}

func TestUnpacker(t *testing.T) {
	suite.Run(t, new(UnpackerSuite))
}
