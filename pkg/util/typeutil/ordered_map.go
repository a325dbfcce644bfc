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

package typeutil

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/telepath-go/internal/json"
)

// OrderedMap 是保持插入顺序的映射类型。
//
// 与内建 map 的区别在于 Keys/Range/MarshalJSON 都按照插入顺序访问元素，
// 对同一 key 的重复 Set 不改变其原有位置。
// OrderedMap 不是并发安全的，由调用方保证同一实例不被并发读写。
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap 创建一个空的 OrderedMap。
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		values: make(map[K]V),
	}
}

// Set 写入一个键值对。
// 新 key 追加到末尾，已存在的 key 仅更新值，不改变顺序。
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get 返回 key 对应的值，以及该 key 是否存在。
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Contain 判断 key 是否存在。
func (m *OrderedMap[K, V]) Contain(key K) bool {
	_, ok := m.values[key]
	return ok
}

// Keys 按插入顺序返回所有 key。
// 返回的切片为内部存储，调用方不应修改。
func (m *OrderedMap[K, V]) Keys() []K {
	return m.keys
}

// Len 返回键值对个数。
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Range 按插入顺序遍历所有键值对。
// fn 返回 false 时提前终止遍历。
func (m *OrderedMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// MarshalJSON 将 OrderedMap 编码为 JSON 对象，key 按插入顺序输出。
//
// 仅支持可编码为 JSON 字符串的 key 类型（通常为 string）。
func (m *OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if len(kb) == 0 || kb[0] != '"' {
			return nil, errors.Newf("ordered map key is not a JSON string: %s", kb)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
