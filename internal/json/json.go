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

// Package json 是项目内部统一的 JSON 门面，基于 bytedance/sonic 的
// 标准库兼容配置实现。仓库内所有 JSON 编解码都应经由本包，
// 避免各处直接依赖具体实现。
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

var config = sonic.ConfigStd

var (
	// Marshal 将对象编码为 JSON 字节序列。
	Marshal = config.Marshal
	// Unmarshal 将 JSON 字节序列解码到目标对象。
	Unmarshal = config.Unmarshal
	// MarshalIndent 编码为带缩进的 JSON，便于人工阅读。
	MarshalIndent = config.MarshalIndent
	// Valid 判断给定字节序列是否为合法 JSON。
	Valid = config.Valid
)

// NewEncoder 创建一个写入 w 的 JSON 编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return config.NewEncoder(w)
}

// NewDecoder 创建一个从 r 读取的 JSON 解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return config.NewDecoder(r)
}
