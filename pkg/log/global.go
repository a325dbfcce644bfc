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

package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	globalProps  atomic.Pointer[ZapProperties]
)

func init() {
	logger, props, _ := InitLogger(&Config{Level: "info", Format: "text"})
	ReplaceGlobals(logger, props)
}

// L 返回全局 Logger。
func L() *zap.Logger {
	return globalLogger.Load()
}

// S 返回全局 SugaredLogger。
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// ReplaceGlobals 替换全局 Logger 及其属性。
// 仅应在进程初始化阶段调用。
func ReplaceGlobals(logger *zap.Logger, props *ZapProperties) {
	globalLogger.Store(logger)
	globalProps.Store(props)
}

// With 基于全局 Logger 创建携带固定字段的子 Logger。
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Debug 在 Debug 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info 在 Info 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn 在 Warn 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error 在 Error 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Sync 刷新全局 Logger 中缓冲的日志。
func Sync() error {
	return L().Sync()
}
