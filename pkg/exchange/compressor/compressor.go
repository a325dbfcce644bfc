package compressor

// Compressor 抽象了“单次压缩/解压”能力。
//
// 面向编码产物的整段压缩，不做流式处理；
// 不做全局单例，调用方按需创建具体实现的实例。
type Compressor interface {
	// Compress 压缩 src，返回压缩后的完整数据。
	Compress(src []byte) ([]byte, error)

	// Decompress 解压 src。src 必须是 Compress 的输出。
	Decompress(src []byte) ([]byte, error)
}

// NopCompressor 是一个空实现：不做任何压缩/解压，直接返回输入内容。
//
// 适用于框架默认值（未开启压缩功能时），
// 便于在调用侧通过接口注入，在不改业务逻辑的前提下关闭压缩。
type NopCompressor struct{}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}

func (NopCompressor) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(src []byte) ([]byte, error) {
	return src, nil
}
