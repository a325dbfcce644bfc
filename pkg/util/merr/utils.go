// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case telepathError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(telepathError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

type errorField struct {
	name  string
	value any
}

func (f errorField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

func value(name string, value any) errorField {
	return errorField{
		name:  name,
		value: value,
	}
}

// wrapFields 在叶子错误的基础上拼接结构化字段与补充信息，
// 生成的错误仍然可以通过 errors.Is 与叶子错误匹配。
func wrapFields(err telepathError, msg []string, fields ...errorField) error {
	parts := make([]string, 0, len(fields)+1)
	for i := range fields {
		parts = append(parts, fields[i].String())
	}
	if extra := strings.Join(msg, "; "); extra != "" {
		parts = append(parts, extra)
	}
	if len(parts) == 0 {
		return errors.Wrap(err, err.msg)
	}
	return errors.Wrapf(err, "%s[%s]", err.msg, strings.Join(parts, ", "))
}

// WrapErrAdapterConflict 表示重复注册：同一 Go 类型或同一构造器名已经存在适配器。
func WrapErrAdapterConflict(goType string, name string, msg ...string) error {
	return wrapFields(ErrAdapterConflict, msg,
		value("type", goType),
		value("constructor", name))
}

// WrapErrRegistrySealed 表示在注册表封印后仍尝试注册。
func WrapErrRegistrySealed(goType string, msg ...string) error {
	return wrapFields(ErrRegistrySealed, msg, value("type", goType))
}

// WrapErrTypeUnregistered 表示待打包的值既不是透传类型，也没有注册适配器。
func WrapErrTypeUnregistered(goType string, msg ...string) error {
	return wrapFields(ErrTypeUnregistered, msg, value("type", goType))
}

// WrapErrConstructorUnknown 表示线上数据引用了接收端未注册的构造器名。
func WrapErrConstructorUnknown(name string, msg ...string) error {
	return wrapFields(ErrConstructorUnknown, msg, value("constructor", name))
}

// WrapErrCyclicDependency 表示环上存在不支持占位符两阶段构造的适配器。
func WrapErrCyclicDependency(index int, name string, msg ...string) error {
	return wrapFields(ErrCyclicDependency, msg,
		value("index", index),
		value("constructor", name))
}

// WrapErrWireInvalid 表示线格式结构非法（缺字段、下标越界、类型不符等）。
func WrapErrWireInvalid(reason string, msg ...string) error {
	return wrapFields(ErrWireInvalid, msg, value("reason", reason))
}

// WrapErrPayloadCorrupted 表示边界字节流无法还原为线格式树。
func WrapErrPayloadCorrupted(stage string, err error, msg ...string) error {
	wrapped := wrapFields(ErrPayloadCorrupted, msg, value("stage", stage))
	if err != nil {
		wrapped = errors.Wrap(wrapped, err.Error())
	}
	return wrapped
}

// WrapErrParameterInvalid 表示调用方传入的参数非法。
func WrapErrParameterInvalid(name string, reason string, msg ...string) error {
	return wrapFields(ErrParameterInvalid, msg,
		value("parameter", name),
		value("reason", reason))
}
