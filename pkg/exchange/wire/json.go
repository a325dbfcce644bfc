package wire

import (
	stdjson "encoding/json"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/telepath-go/internal/json"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
)

// jsonNumber 为解码时保留精度的数值形态。
type jsonNumber = stdjson.Number

// 解码配置：数值保留为 json.Number，避免大整数经 float64 失真。
var decodeConfig = jsoniter.Config{UseNumber: true}.Froze()

// Marshal 将线格式树编码为 JSON 字节序列。
func Marshal(node Node) ([]byte, error) {
	return json.Marshal(node)
}

// MarshalIndent 编码为带缩进的 JSON，便于调试输出。
func MarshalIndent(node Node) ([]byte, error) {
	return json.MarshalIndent(node, "", "  ")
}

// Unmarshal 将 JSON 字节序列解码为线格式树。
//
// 与通用 JSON 解码的区别：
//   - 对象键序严格保留（jsoniter 流式读取，落入 Object）；
//   - {"_type"...}/{"_ref"...}/{"_dict"...} 被识别为对应的协议节点；
//   - 数值保留为 json.Number。
func Unmarshal(data []byte) (Node, error) {
	iter := decodeConfig.BorrowIterator(data)
	defer decodeConfig.ReturnIterator(iter)

	node, err := readNode(iter)
	if err != nil {
		return nil, err
	}
	if iter.Error != nil && iter.Error.Error() != "EOF" {
		return nil, merr.WrapErrPayloadCorrupted("json", iter.Error)
	}
	return node, nil
}

func readNode(iter *jsoniter.Iterator) (Node, error) {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil, iterError(iter)

	case jsoniter.BoolValue:
		v := iter.ReadBool()
		return v, iterError(iter)

	case jsoniter.NumberValue, jsoniter.StringValue:
		v := iter.Read()
		return v, iterError(iter)

	case jsoniter.ArrayValue:
		arr := make([]Node, 0)
		var innerErr error
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			elem, err := readNode(it)
			if err != nil {
				innerErr = err
				return false
			}
			arr = append(arr, elem)
			return true
		})
		if innerErr != nil {
			return nil, innerErr
		}
		if err := iterError(iter); err != nil {
			return nil, err
		}
		return arr, nil

	case jsoniter.ObjectValue:
		obj := NewObject()
		var innerErr error
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			var (
				val Node
				err error
			)
			if field == KeyDict && it.WhatIsNext() == jsoniter.ObjectValue {
				// 逃逸包装的直接子映射按字面读取：
				// 它的键是数据键，不做协议形态识别。
				val, err = readRawObject(it)
			} else {
				val, err = readNode(it)
			}
			if err != nil {
				innerErr = err
				return false
			}
			obj.Set(field, val)
			return true
		})
		if innerErr != nil {
			return nil, innerErr
		}
		if err := iterError(iter); err != nil {
			return nil, err
		}
		return Classify(obj)

	default:
		return nil, merr.WrapErrPayloadCorrupted("json", iter.Error)
	}
}

// readRawObject 按字面读取一个映射节点：键不做协议识别，
// 值仍按正常线格式节点递归读取。
func readRawObject(iter *jsoniter.Iterator) (*Object, error) {
	obj := NewObject()
	var innerErr error
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		val, err := readNode(it)
		if err != nil {
			innerErr = err
			return false
		}
		obj.Set(field, val)
		return true
	})
	if innerErr != nil {
		return nil, innerErr
	}
	if err := iterError(iter); err != nil {
		return nil, err
	}
	return obj, nil
}

func iterError(iter *jsoniter.Iterator) error {
	if iter.Error != nil && iter.Error.Error() != "EOF" {
		return merr.WrapErrPayloadCorrupted("json", iter.Error)
	}
	return nil
}

func sortStrings(keys []string) {
	sort.Strings(keys)
}
