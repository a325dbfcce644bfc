// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log 是项目统一的结构化日志封装，基于 go.uber.org/zap。
//
// 进程启动时通过 InitLogger + ReplaceGlobals 初始化一次，
// 其余代码使用包级 Debug/Info/Warn/Error 或 L() 记录日志。
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapProperties 记录 zap 日志相关的核心信息。
type ZapProperties struct {
	Core   zapcore.Core
	Syncer zapcore.WriteSyncer
	Level  zap.AtomicLevel
}

// InitLogger 根据配置初始化 zap Logger。
//
// 输出目标由配置决定：Stdout（可选）与 File.Filename（可选，经由 lumberjack 滚动）。
// 两者都未配置时退化为仅标准输出，保证日志不会被静默丢弃。
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	c := cfg.withDefaults()

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, nil, err
	}

	var syncers []zapcore.WriteSyncer
	if c.File.Filename != "" {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File.Filename,
			MaxSize:    c.File.MaxSize,
			MaxAge:     c.File.MaxDays,
			MaxBackups: c.File.MaxBackups,
		}))
	}
	if c.Stdout || len(syncers) == 0 {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	syncer := zapcore.NewMultiWriteSyncer(syncers...)

	core := zapcore.NewCore(newEncoder(&c), syncer, level)

	if !c.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if !c.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(core, opts...)
	props := &ZapProperties{
		Core:   core,
		Syncer: syncer,
		Level:  level,
	}
	return logger, props, nil
}

func newEncoder(cfg *Config) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	if cfg.Format == "json" {
		return zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewConsoleEncoder(encCfg)
}
