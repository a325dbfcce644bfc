package exchange

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

type RegistrySuite struct {
	suite.Suite
}

func (s *RegistrySuite) TestRegisterConflictByType() {
	r := NewRegistry()
	s.NoError(r.Register(TypeOf[*point](), pointAdapter{}))

	// 同一类型再次注册失败，且失败的注册不影响原有条目。
	err := r.Register(TypeOf[*point](), boxAdapter{})
	s.ErrorIs(err, merr.ErrAdapterConflict)

	adapter, err := r.AdapterFor(TypeOf[*point]())
	s.NoError(err)
	s.Equal("geom.Point", adapter.TypeName())
	s.Equal(1, r.Len())
}

func (s *RegistrySuite) TestRegisterConflictByName() {
	r := NewRegistry()
	s.NoError(r.Register(TypeOf[*point](), pointAdapter{}))

	// 不同类型、相同构造器名同样冲突。
	err := r.Register(TypeOf[*box](), pointAdapter{})
	s.ErrorIs(err, merr.ErrAdapterConflict)

	_, err = r.AdapterFor(TypeOf[*box]())
	s.ErrorIs(err, merr.ErrTypeUnregistered)
}

func (s *RegistrySuite) TestRegisterInvalidParams() {
	r := NewRegistry()
	s.ErrorIs(r.Register(nil, pointAdapter{}), merr.ErrParameterInvalid)
	s.ErrorIs(r.Register(TypeOf[*point](), nil), merr.ErrParameterInvalid)
	s.ErrorIs(r.Register(TypeOf[*point](), &FuncAdapter{Name: ""}), merr.ErrParameterInvalid)
}

func (s *RegistrySuite) TestSeal() {
	r := NewRegistry()
	s.NoError(r.Register(TypeOf[*point](), pointAdapter{}))
	s.False(r.Sealed())

	r.Seal()
	s.True(r.Sealed())

	err := r.Register(TypeOf[*box](), boxAdapter{})
	s.ErrorIs(err, merr.ErrRegistrySealed)

	// 封印后读取照常。
	adapter, err := r.AdapterFor(TypeOf[*point]())
	s.NoError(err)
	s.Equal("geom.Point", adapter.TypeName())
}

func (s *RegistrySuite) TestRegisterDuringSeal() {
	r := NewRegistry()

	var wg sync.WaitGroup
	results := make([]error, 64)
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// reflect.ArrayOf 按长度生成互不相同的类型。
			results[i] = r.Register(reflect.ArrayOf(i+1, TypeOf[int]()), &FuncAdapter{
				Name: fmt.Sprintf("race.%d", i),
			})
		}()
	}

	r.Seal()
	sealedLen := r.Len()
	wg.Wait()

	// 封印一经生效不再有注册落表。
	s.Equal(sealedLen, r.Len())

	succeeded := 0
	for i, err := range results {
		if err != nil {
			s.ErrorIs(err, merr.ErrRegistrySealed)
			continue
		}
		succeeded++
		_, lookupErr := r.RebuilderFor(fmt.Sprintf("race.%d", i))
		s.NoError(lookupErr)
	}
	s.Equal(succeeded, r.Len())
}

func (s *RegistrySuite) TestLookupErrors() {
	r := newTestRegistry()

	_, err := r.AdapterFor(TypeOf[*struct{ A int }]())
	s.ErrorIs(err, merr.ErrTypeUnregistered)

	_, err = r.RebuilderFor("nonexistent")
	s.ErrorIs(err, merr.ErrConstructorUnknown)
}

func (s *RegistrySuite) TestRebuilderFor() {
	r := newTestRegistry()
	adapter, err := r.RebuilderFor("geom.Point")
	s.NoError(err)
	s.Equal("geom.Point", adapter.TypeName())
}

type broadIface interface {
	Label() string
}

type narrowIface interface {
	Label() string
	Detail() string
}

type labeled struct{ label string }

func (l *labeled) Label() string { return l.label }

type detailed struct{ label, detail string }

func (d *detailed) Label() string  { return d.label }
func (d *detailed) Detail() string { return d.detail }

func ifaceAdapter(name string) Adapter {
	return &FuncAdapter{
		Name: name,
		PackFunc: func(v any) ([]any, error) {
			return []any{v.(broadIface).Label()}, nil
		},
		UnpackFunc: func(args []any) (any, error) {
			return &labeled{label: args[0].(string)}, nil
		},
	}
}

func (s *RegistrySuite) TestInterfaceLookupMostSpecific() {
	r := NewRegistry()
	s.NoError(r.Register(TypeOf[broadIface](), ifaceAdapter("test.Broad")))
	s.NoError(r.Register(TypeOf[narrowIface](), ifaceAdapter("test.Narrow")))
	r.Seal()

	// *detailed 同时实现两个接口，取方法集更大的 narrowIface。
	adapter, err := r.AdapterFor(TypeOf[*detailed]())
	s.NoError(err)
	s.Equal("test.Narrow", adapter.TypeName())

	// *labeled 只实现 broadIface。
	adapter, err = r.AdapterFor(TypeOf[*labeled]())
	s.NoError(err)
	s.Equal("test.Broad", adapter.TypeName())
}

func (s *RegistrySuite) TestInterfaceLookupRegistrationOrderOnTie() {
	type firstIface interface{ Label() string }
	type secondIface interface{ Label() string }

	r := NewRegistry()
	s.NoError(r.Register(TypeOf[firstIface](), ifaceAdapter("test.First")))
	s.NoError(r.Register(TypeOf[secondIface](), ifaceAdapter("test.Second")))
	r.Seal()

	// 两个接口方法集互相覆盖，无法比较时按注册先后取先注册者。
	adapter, err := r.AdapterFor(TypeOf[*labeled]())
	s.NoError(err)
	s.Equal("test.First", adapter.TypeName())
}

func (s *RegistrySuite) TestExactBeatsInterface() {
	r := NewRegistry()
	s.NoError(r.Register(TypeOf[broadIface](), ifaceAdapter("test.Broad")))
	s.NoError(r.Register(TypeOf[*labeled](), ifaceAdapter("test.Exact")))
	r.Seal()

	adapter, err := r.AdapterFor(TypeOf[*labeled]())
	s.NoError(err)
	s.Equal("test.Exact", adapter.TypeName())
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
