// Package adapters 提供常用内建类型的适配器。
//
// 这些适配器同时演示了两种适配器形态：
// std.Time 是原子构造（参数齐备后一次构造完成），
// std.List 是可占位的两阶段构造，因此可以出现在对象图的环上。
package adapters

import (
	"time"

	"github.com/lk2023060901/telepath-go/pkg/exchange"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

const (
	TimeTypeName = "std.Time"
	ListTypeName = "std.List"
)

// List 是可参与环的通用可变容器。
// 元素可以是任意可打包的值，包括 List 自身（直接或间接成环）。
type List struct {
	Items []any
}

// NewList 创建一个包含给定元素的 List。
func NewList(items ...any) *List {
	return &List{Items: items}
}

// timeAdapter 以 RFC3339Nano 文本交换 time.Time。
// 时区偏移随文本保留，单调时钟读数丢弃。
type timeAdapter struct{}

var _ exchange.Adapter = timeAdapter{}

func (timeAdapter) TypeName() string {
	return TimeTypeName
}

func (timeAdapter) Pack(v any) ([]any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not a time.Time")
	}
	return []any{t.Format(time.RFC3339Nano)}, nil
}

func (timeAdapter) Unpack(args []any) (any, error) {
	if len(args) != 1 {
		return nil, merr.WrapErrWireInvalid("std.Time expects exactly 1 arg")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, merr.WrapErrWireInvalid("std.Time arg is not a string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, merr.WrapErrWireInvalid("std.Time arg is not RFC3339", err.Error())
	}
	return t, nil
}

type listAdapter struct{}

var _ exchange.CyclicAdapter = listAdapter{}

func (listAdapter) TypeName() string {
	return ListTypeName
}

func (listAdapter) Pack(v any) ([]any, error) {
	l, ok := v.(*List)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("value", "not a *List")
	}
	return l.Items, nil
}

func (listAdapter) Unpack(args []any) (any, error) {
	return &List{Items: args}, nil
}

func (listAdapter) Placeholder() any {
	return &List{}
}

func (listAdapter) Fill(placeholder any, args []any) error {
	l, ok := placeholder.(*List)
	if !ok {
		return merr.WrapErrParameterInvalid("placeholder", "not a *List")
	}
	l.Items = args
	return nil
}

// RegisterBuiltins 将内建适配器注册到给定注册表。
// 在进程启动阶段、Seal 之前调用。
func RegisterBuiltins(r *exchange.Registry) error {
	if err := r.Register(exchange.TypeOf[time.Time](), timeAdapter{}); err != nil {
		return err
	}
	return r.Register(exchange.TypeOf[*List](), listAdapter{})
}
