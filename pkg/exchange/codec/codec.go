// Package codec 负责线格式树与传输字节之间的边界转换。
//
// Pipeline（发送 Encode）：
//
//	wire.Node --> JSON 字节 --> [compress?] --> payload
//
// Pipeline（接收 Decode）：
//
//	payload --> [decompress?] --> JSON 字节 --> wire.Node
//
// 压缩产物以 zstd 魔数开头，Decode 据此自动识别，无需额外的帧头。
// 传输本身（socket、HTTP 等）不属于本层。
package codec

import (
	"bytes"

	"github.com/lk2023060901/telepath-go/pkg/exchange/compressor"
	"github.com/lk2023060901/telepath-go/pkg/exchange/wire"
	"github.com/lk2023060901/telepath-go/pkg/metrics"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

// Codec 抽象了“从线格式树到传输字节，以及从传输字节回到线格式树”的完整边界转换。
type Codec interface {
	// Encode 将线格式树编码为传输字节。
	Encode(node wire.Node) ([]byte, error)

	// Decode 将传输字节还原为线格式树。
	Decode(data []byte) (wire.Node, error)
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Compressor compressor.Compressor // 允许为 nil（开启压缩时内部创建 Zstd 实例）

	EnableCompression bool // 是否启用压缩
	MinCompressSize   int  // 触发压缩的最小字节数，小于该值的产物不压缩
	Pretty            bool // 是否输出带缩进的 JSON，便于调试
}

type codec struct {
	compressor compressor.Compressor

	compress bool
	minSize  int
	pretty   bool
}

var _ Codec = (*codec)(nil)

// zstdMagic 为 zstd 帧的魔数，Decode 以此识别压缩产物。
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (Codec, error) {
	c := &codec{
		compressor: opts.Compressor,
		compress:   opts.EnableCompression,
		minSize:    opts.MinCompressSize,
		pretty:     opts.Pretty,
	}

	if c.compressor == nil {
		if c.compress {
			zc, err := compressor.NewZstdCompressor()
			if err != nil {
				return nil, err
			}
			c.compressor = zc
		} else {
			c.compressor = compressor.NopCompressor{}
		}
	}

	return c, nil
}

// Encode 实现 Codec.Encode。
func (c *codec) Encode(node wire.Node) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if c.pretty {
		body, err = wire.MarshalIndent(node)
	} else {
		body, err = wire.Marshal(node)
	}
	if err != nil {
		return nil, merr.WrapErrPayloadCorrupted("marshal", err)
	}

	if c.compress && len(body) >= c.minSize {
		packed, err := c.compressor.Compress(body)
		if err != nil {
			return nil, merr.WrapErrPayloadCorrupted("compress", err)
		}
		body = packed
	}

	metrics.CodecBytes.WithLabelValues(metrics.PackOpLabel).Observe(float64(len(body)))
	return body, nil
}

// Decode 实现 Codec.Decode。
func (c *codec) Decode(data []byte) (wire.Node, error) {
	if len(data) == 0 {
		return nil, merr.WrapErrParameterInvalid("data", "empty payload")
	}
	metrics.CodecBytes.WithLabelValues(metrics.UnpackOpLabel).Observe(float64(len(data)))

	if bytes.HasPrefix(data, zstdMagic) {
		if !c.compress {
			return nil, merr.WrapErrPayloadCorrupted("decompress", nil,
				"compressed payload but compression disabled")
		}
		plain, err := c.compressor.Decompress(data)
		if err != nil {
			return nil, merr.WrapErrPayloadCorrupted("decompress", err)
		}
		data = plain
	}

	return wire.Unmarshal(data)
}
