// Package protocol 定义响应管道使用的抽象状态、标头与挂车模型。
//
// 这里只负责标头的组织与序列化，不做任何线格式的解析。
package protocol

import (
	"bytes"

	"github.com/favbox/ripple/internal/bytesconv"
)

const (
	argsNoValue  = true
	ArgsHasValue = false
)

var nilByteSlice = []byte{}

// argsKV 是一对有序的多值标头键值。
type argsKV struct {
	key     []byte
	value   []byte
	noValue bool
}

func (kv *argsKV) GetKey() []byte {
	return kv.key
}

func (kv *argsKV) GetValue() []byte {
	return kv.value
}

// 对切片中的每个键值对都应用 f 函数。
func visitArgs(args []argsKV, f func(key, value []byte)) {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		f(kv.key, kv.value)
	}
}

// 获取参数切片中指定键的值。
func peekArgBytes(args []argsKV, key []byte) []byte {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if bytes.Equal(kv.key, key) {
			if kv.value != nil {
				return kv.value
			}
			return nilByteSlice
		}
	}
	return nil
}

func hasArgBytes(args []argsKV, key []byte) bool {
	return peekArgBytes(args, key) != nil
}

// 删除切片中所有与指定键相同的参数。
func delAllArgsBytes(args []argsKV, key []byte) []argsKV {
	k := bytesconv.B2s(key)
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if k == string(kv.key) {
			tmp := *kv
			copy(args[i:], args[i+1:])
			n--
			i--
			args[n] = tmp
			args = args[:n]
		}
	}
	return args
}

func copyArgs(dst, src []argsKV) []argsKV {
	if cap(dst) < len(src) {
		tmp := make([]argsKV, len(src))
		copy(tmp, dst)
		dst = tmp
	}
	n := len(src)
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dstKV := &dst[i]
		srcKV := &src[i]
		dstKV.key = append(dstKV.key[:0], srcKV.key...)
		if srcKV.noValue {
			dstKV.value = dstKV.value[:0]
		} else {
			dstKV.value = append(dstKV.value[:0], srcKV.value...)
		}
	}
	return dst
}

// 更新或追加参数切片 args 中指定 key 的 value。
func setArgBytes(args []argsKV, key, value []byte, noValue bool) []argsKV {
	n := len(args)
	for i := 0; i < n; i++ {
		kv := &args[i]
		if bytes.Equal(key, kv.key) {
			if noValue {
				kv.value = kv.value[:0]
			} else {
				kv.value = append(kv.value[:0], value...)
			}
			kv.noValue = noValue
			return args
		}
	}
	return appendArgBytes(args, key, value, noValue)
}

// 附加一对字节切片形式的标头。
func appendArgBytes(args []argsKV, key, value []byte, noValue bool) []argsKV {
	var kv *argsKV
	args, kv = allocArg(args)
	kv.key = append(kv.key[:0], key...)
	if noValue {
		kv.value = kv.value[:0]
	} else {
		kv.value = append(kv.value[:0], value...)
	}
	kv.noValue = noValue
	return args
}

// 更新标头中指定键的值，仅覆盖尚无值的键。
func updateArgBytes(args []argsKV, key, value []byte) []argsKV {
	n := len(args)
	for i := 0; i < n; i++ {
		kv := &args[i]
		if kv.noValue && bytes.Equal(key, kv.key) {
			kv.value = append(kv.value[:0], value...)
			kv.noValue = ArgsHasValue
			return args
		}
	}
	return args
}

// 按需扩容参数切片。
//
// 有容量则扩展1个，容量不足则附加1个（容量可能翻倍）。
//
// 返回扩容后的完整切片及扩容部分的第一个新切片指针。
func allocArg(args []argsKV) ([]argsKV, *argsKV) {
	n := len(args)
	if cap(args) > n {
		args = args[:n+1]
	} else {
		args = append(args, argsKV{})
	}
	return args, &args[n]
}
