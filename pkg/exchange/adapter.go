// Package exchange 实现双向值交换协议的核心：
// 适配器注册表、带身份去重的递归打包器，以及支持环解析的解包器。
//
// 发送端将应用值打包为 JSON 安全的线格式树（见 wire 包），
// 接收端按注册的构造器名逐一重建对象，并保持对象身份共享关系。
// 典型用法：
//
//	exchange.RegisterType[*geom.Point](pointAdapter{})
//	exchange.Seal()
//
//	node, err := exchange.Pack(value)     // 发送端
//	value, err := exchange.Unpack(node)   // 接收端
package exchange

// Adapter 定义单个应用类型与线格式之间的转换策略。
//
// 适配器作者需要保证：
//   - Pack 是实例的纯函数：无副作用，同一次打包操作内重复调用返回
//     等价的参数列表（上游的身份去重依赖这一点）；
//   - Unpack 对同样的有序参数重建出对消费方而言观测等价的值。
//
// 协议不校验这组约定，违反约定的适配器产生的行为未定义。
type Adapter interface {
	// TypeName 返回全局唯一的构造器名，例如 "geom.Point"。
	// 两端注册表以该名字配对打包与重建逻辑。
	TypeName() string

	// Pack 将实例分解为有序参数列表。
	Pack(v any) ([]any, error)

	// Unpack 根据有序参数重建实例。
	Unpack(args []any) (any, error)
}

// CyclicAdapter 在 Adapter 基础上增加“先占位、后填充”的两阶段构造能力。
//
// 只有实现了本接口的适配器可以出现在对象图的环上：
// 解包器先将 Placeholder 的返回值登记到引用表，
// 使环内的回引用能拿到同一实例，参数齐备后再调用 Fill 补全内容。
// 未实现本接口的适配器参与环时，解包失败并返回 ErrCyclicDependency。
type CyclicAdapter interface {
	Adapter

	// Placeholder 返回一个未填充参数的空实例。
	Placeholder() any

	// Fill 将解包完成的参数填充进 Placeholder 返回的实例。
	Fill(placeholder any, args []any) error
}

// FuncAdapter 以函数字段方式实现 Adapter，便于注册简单类型。
type FuncAdapter struct {
	Name       string
	PackFunc   func(v any) ([]any, error)
	UnpackFunc func(args []any) (any, error)
}

var _ Adapter = (*FuncAdapter)(nil)

func (a *FuncAdapter) TypeName() string {
	return a.Name
}

func (a *FuncAdapter) Pack(v any) ([]any, error) {
	return a.PackFunc(v)
}

func (a *FuncAdapter) Unpack(args []any) (any, error) {
	return a.UnpackFunc(args)
}
