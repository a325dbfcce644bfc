// Package wire 定义值交换协议的线格式（wire format）中间表示。
//
// 线格式是 JSON 安全的树：
//
//	Node :=
//	    基本类型 (nil | bool | 数值 | string)
//	  | []Node                                  // 保序
//	  | *Object                                 // 保留键序
//	  | *Compound  {"_id":i,"_type":name,"_args":[Node...]}
//	  | *Ref       {"_ref":i}
//	  | *Dict      {"_dict":{...}}              // 保留键逃逸
//
// 树由 exchange 包的 Packer 生成、Unpacker 消费，
// 经由 Marshal/Unmarshal 与 JSON 字节互转；传输本身不属于本层。
package wire

import (
	"bytes"
	"strconv"

	"github.com/lk2023060901/telepath-go/internal/json"
	"github.com/lk2023060901/telepath-go/pkg/util/merr"
	"github.com/lk2023060901/telepath-go/pkg/util/typeutil"
)

// Node 为线格式树中的任意节点。
type Node = any

// 协议保留键。数据映射中以 "_" 开头的键必须经过 Dict 逃逸，
// 避免与这些保留键冲突。
const (
	KeyID   = "_id"
	KeyType = "_type"
	KeyArgs = "_args"
	KeyRef  = "_ref"
	KeyDict = "_dict"
)

// Object 为保序的字符串键映射节点。
type Object = typeutil.OrderedMap[string, Node]

// NewObject 创建一个空的映射节点。
func NewObject() *Object {
	return typeutil.NewOrderedMap[string, Node]()
}

// Compound 表示一个由注册适配器重建的复合节点。
//
// Index 是打包时按前序遍历分配的引用下标；首次落盘时随节点一起输出，
// 供后续 Ref 节点回指。Index 为负表示节点未携带 _id，
// 接收端按遍历顺序补齐下标。
type Compound struct {
	Index int
	Type  string
	Args  []Node
}

// Ref 回指一个先前声明的 Compound 节点。
type Ref struct {
	Index int
}

// Dict 包装一个含保留前缀键的普通映射。
// 序列化为 {"_dict": {...}}，接收端解包后即为原始映射。
type Dict struct {
	Value *Object
}

// MarshalJSON 输出 {"_id":i,"_type":...,"_args":[...]}，Index 为负时省略 _id。
func (c *Compound) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c.Index >= 0 {
		buf.WriteString(`"` + KeyID + `":`)
		buf.WriteString(strconv.Itoa(c.Index))
		buf.WriteByte(',')
	}
	buf.WriteString(`"` + KeyType + `":`)
	nb, err := json.Marshal(c.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(nb)
	buf.WriteString(`,"` + KeyArgs + `":`)
	args := c.Args
	if args == nil {
		args = []Node{}
	}
	ab, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	buf.Write(ab)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Ref) MarshalJSON() ([]byte, error) {
	return []byte(`{"` + KeyRef + `":` + strconv.Itoa(r.Index) + `}`), nil
}

func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + KeyDict + `":`)
	vb, err := json.Marshal(d.Value)
	if err != nil {
		return nil, err
	}
	buf.Write(vb)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Classify 判定一个映射节点是否为协议特殊形态。
//
// 返回值：
//   - {"_ref": i}            -> *Ref
//   - 含 "_type" 的对象      -> *Compound（_args 必须为数组，_id 可选）
//   - {"_dict": {...}}       -> 逃逸解包后的 *Object
//   - 其余                   -> 原样返回 *Object（普通映射）
//
// 结构不完整的特殊形态（例如 _type 不是字符串）返回 ErrWireInvalid。
func Classify(obj *Object) (Node, error) {
	if v, ok := obj.Get(KeyRef); ok && obj.Len() == 1 {
		idx, ok := toIndex(v)
		if !ok {
			return nil, merr.WrapErrWireInvalid("_ref index is not a non-negative integer")
		}
		return &Ref{Index: idx}, nil
	}

	if v, ok := obj.Get(KeyType); ok {
		name, ok := v.(string)
		if !ok || name == "" {
			return nil, merr.WrapErrWireInvalid("_type is not a non-empty string")
		}
		idx := -1
		if iv, ok := obj.Get(KeyID); ok {
			idx, ok = toIndex(iv)
			if !ok {
				return nil, merr.WrapErrWireInvalid("_id is not a non-negative integer")
			}
		}
		var args []Node
		if av, ok := obj.Get(KeyArgs); ok {
			args, ok = av.([]Node)
			if !ok {
				return nil, merr.WrapErrWireInvalid("_args is not an array")
			}
		}
		return &Compound{Index: idx, Type: name, Args: args}, nil
	}

	if v, ok := obj.Get(KeyDict); ok && obj.Len() == 1 {
		switch inner := v.(type) {
		case *Object:
			return inner, nil
		case map[string]any:
			return objectFromMap(inner), nil
		default:
			return nil, merr.WrapErrWireInvalid("_dict value is not an object")
		}
	}

	return obj, nil
}

// objectFromMap 将内建 map 转为保序映射节点。
// 内建 map 自身无序，这里按键字典序排列以保证确定性。
func objectFromMap(m map[string]any) *Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	obj := NewObject()
	for _, k := range keys {
		obj.Set(k, m[k])
	}
	return obj
}

func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	case float64:
		i := int(n)
		return i, float64(i) == n && i >= 0
	case jsonNumber:
		i, err := strconv.Atoi(n.String())
		return i, err == nil && i >= 0
	default:
		return 0, false
	}
}
