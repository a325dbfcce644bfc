package exchange

import (
	"reflect"
	"sync"

	uatomic "go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/telepath-go/pkg/log"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

// Registry 维护“Go 类型 -> 适配器”与“构造器名 -> 适配器”两张表。
//
// 生命周期分两个阶段：
//  1. 注册阶段：进程启动时各协作方调用 Register 登记自己的类型；
//  2. 封印之后：调用 Seal 进入只读阶段，此后注册失败，
//     读取无锁，可被任意数量的打包/解包操作并发使用。
type Registry struct {
	mu     sync.RWMutex
	sealed uatomic.Bool

	types  map[reflect.Type]Adapter
	names  map[string]Adapter
	ifaces []ifaceEntry
}

// ifaceEntry 记录一条接口注册：适配器适用于实现了 typ 的所有类型。
type ifaceEntry struct {
	typ     reflect.Type
	adapter Adapter
}

// NewRegistry 创建一个空的注册表。
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[reflect.Type]Adapter),
		names: make(map[string]Adapter),
	}
}

// Register 为 rt 登记适配器。
//
// rt 为接口类型时，适配器适用于该接口的所有实现者（见 AdapterFor）。
// 同一 Go 类型或同一构造器名重复注册返回 ErrAdapterConflict，
// 失败的注册不会对注册表产生任何影响。
func (r *Registry) Register(rt reflect.Type, adapter Adapter) error {
	if rt == nil {
		return merr.WrapErrParameterInvalid("type", "nil")
	}
	if adapter == nil {
		return merr.WrapErrParameterInvalid("adapter", "nil")
	}
	name := adapter.TypeName()
	if name == "" {
		return merr.WrapErrParameterInvalid("adapter", "empty constructor name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Seal 持锁翻转封印位，封印检查必须在同一临界区内，
	// 否则与 Seal 竞争的注册可能在封印之后落表。
	if r.sealed.Load() {
		return merr.WrapErrRegistrySealed(rt.String())
	}

	if _, ok := r.types[rt]; ok {
		return merr.WrapErrAdapterConflict(rt.String(), name, "type already registered")
	}
	if _, ok := r.names[name]; ok {
		return merr.WrapErrAdapterConflict(rt.String(), name, "constructor name already registered")
	}

	r.types[rt] = adapter
	r.names[name] = adapter
	if rt.Kind() == reflect.Interface {
		r.ifaces = append(r.ifaces, ifaceEntry{typ: rt, adapter: adapter})
	}
	return nil
}

// Seal 将注册表置为只读。单向转换，不可撤销。
func (r *Registry) Seal() {
	r.mu.Lock()
	count := len(r.types)
	r.sealed.Store(true)
	r.mu.Unlock()

	log.Info("exchange registry sealed", zap.Int("adapters", count))
}

// Sealed 返回注册表是否已封印。
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// AdapterFor 返回 rt 对应的适配器。
//
// 查找顺序：精确类型命中优先；否则在接口注册项中选取 rt 实现的
// 最具体者（接口 A 比 B 更具体，当且仅当 A 的方法集覆盖 B），
// 无法比较时按注册先后取先注册者。找不到返回 ErrTypeUnregistered。
func (r *Registry) AdapterFor(rt reflect.Type) (Adapter, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	if adapter, ok := r.types[rt]; ok {
		return adapter, nil
	}

	var best *ifaceEntry
	for i := range r.ifaces {
		entry := &r.ifaces[i]
		if entry.typ == rt || !rt.Implements(entry.typ) {
			continue
		}
		if best == nil {
			best = entry
			continue
		}
		if entry.typ.Implements(best.typ) && !best.typ.Implements(entry.typ) {
			best = entry
		}
	}
	if best != nil {
		return best.adapter, nil
	}
	return nil, merr.WrapErrTypeUnregistered(rt.String())
}

// RebuilderFor 返回构造器名对应的适配器（接收端入口）。
// 名字未注册返回 ErrConstructorUnknown，通常意味着两端注册表不一致。
func (r *Registry) RebuilderFor(name string) (Adapter, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	if adapter, ok := r.names[name]; ok {
		return adapter, nil
	}
	return nil, merr.WrapErrConstructorUnknown(name)
}

// Len 返回已注册的适配器数量。
func (r *Registry) Len() int {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	return len(r.types)
}

// defaultRegistry 为进程级注册表。
// 协作方无需显式传递句柄即可共享同一张表。
var defaultRegistry = NewRegistry()

// Default 返回进程级注册表。
func Default() *Registry {
	return defaultRegistry
}

// Register 在进程级注册表中为 rt 登记适配器。
func Register(rt reflect.Type, adapter Adapter) error {
	return defaultRegistry.Register(rt, adapter)
}

// RegisterType 在进程级注册表中为类型 T 登记适配器。
// T 为接口类型时语义与 Register 的接口注册一致。
func RegisterType[T any](adapter Adapter) error {
	return defaultRegistry.Register(TypeOf[T](), adapter)
}

// TypeOf 返回类型 T 的 reflect.Type。
// 与 reflect.TypeOf 不同，T 为接口类型时返回接口类型本身。
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Seal 封印进程级注册表。应在所有协作方完成注册后调用一次。
func Seal() {
	defaultRegistry.Seal()
}
