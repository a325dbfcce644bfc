package codec

import (
	zviper "github.com/lk2023060901/telepath-go/pkg/util/viper"
)

// fileOptions 为配置文件中 codec 段的映射结构。
//
//	codec:
//	  pretty: false
//	  compression:
//	    enabled: true
//	    min-size: 512
type fileOptions struct {
	Pretty      bool `mapstructure:"pretty"`
	Compression struct {
		Enabled bool `mapstructure:"enabled"`
		MinSize int  `mapstructure:"min-size"`
	} `mapstructure:"compression"`
}

// LoadOptions 从 YAML/JSON 配置文件加载 Codec 选项。
// 未出现的字段使用零值默认：不压缩、不缩进。
func LoadOptions(path string) (Options, error) {
	cfg := zviper.New()
	if err := cfg.LoadFile(path); err != nil {
		return Options{}, err
	}

	var fo fileOptions
	if err := cfg.UnmarshalKey("codec", &fo); err != nil {
		return Options{}, err
	}

	return Options{
		EnableCompression: fo.Compression.Enabled,
		MinCompressSize:   fo.Compression.MinSize,
		Pretty:            fo.Pretty,
	}, nil
}
