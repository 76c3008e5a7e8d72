package protocol

import (
	"bytes"

	errs "github.com/favbox/ripple/common/errors"
	"github.com/favbox/ripple/common/utils"
	"github.com/favbox/ripple/internal/bytesconv"
	"github.com/favbox/ripple/internal/bytestr"
	"github.com/favbox/ripple/internal/nocopy"
)

// Trailer 表示分块响应结束块之后发送的挂车标头集。
type Trailer struct {
	noCopy nocopy.NoCopy

	h []argsKV
}

// Get 以字符串形式返回指定键的挂车值。
func (t *Trailer) Get(key string) string {
	return string(t.Peek(key))
}

// Peek 返回指定键的挂车值，不存在时返回 nil。
func (t *Trailer) Peek(key string) []byte {
	k := getHeaderKeyBytes(key)
	return peekArgBytes(t.h, k)
}

// Del 删除指定键的挂车。
func (t *Trailer) Del(key string) {
	k := getHeaderKeyBytes(key)
	t.h = delAllArgsBytes(t.h, k)
}

// VisitAll 对每个挂车键值对应用函数 f。
func (t *Trailer) VisitAll(f func(key, value []byte)) {
	visitArgs(t.h, f)
}

// Set 设置挂车标头。禁止承载的标头会返回 ErrBadTrailer。
func (t *Trailer) Set(key, value string) error {
	k := getHeaderKeyBytes(key)
	return t.setArgBytes(k, bytesconv.S2b(value), ArgsHasValue)
}

// Add 追加挂车标头，同键可多值。禁止承载的标头会返回 ErrBadTrailer。
func (t *Trailer) Add(key, value string) error {
	k := getHeaderKeyBytes(key)
	return t.addArgBytes(k, bytesconv.S2b(value), ArgsHasValue)
}

// UpdateArgBytes 仅为尚无值的挂车键补充值，用于接收端回填。
func (t *Trailer) UpdateArgBytes(key, value []byte) error {
	if IsBadTrailer(key) {
		return errs.ErrBadTrailer
	}
	t.h = updateArgBytes(t.h, key, value)
	return nil
}

func (t *Trailer) setArgBytes(key, value []byte, noValue bool) error {
	if IsBadTrailer(key) {
		return errs.ErrBadTrailer
	}
	t.h = setArgBytes(t.h, key, value, noValue)
	return nil
}

func (t *Trailer) addArgBytes(key, value []byte, noValue bool) error {
	if IsBadTrailer(key) {
		return errs.ErrBadTrailer
	}
	t.h = appendArgBytes(t.h, key, value, noValue)
	return nil
}

// Empty 汇报是否没有任何挂车标头。
func (t *Trailer) Empty() bool {
	return len(t.h) == 0
}

// GetTrailers 返回挂车标头的底层键值对切片。
func (t *Trailer) GetTrailers() []argsKV {
	return t.h
}

// SetTrailers 解析逗号分隔的标头名列表并逐个登记。
//
// 用于承接 Trailer 声明标头的值。
func (t *Trailer) SetTrailers(trailers []byte) (err error) {
	t.h = t.h[:0]
	for i := -1; i+1 < len(trailers); {
		trailers = trailers[i+1:]
		if i = bytes.IndexByte(trailers, ','); i < 0 {
			i = len(trailers)
		}
		key := trailers[:i]
		for len(key) > 0 && key[0] == ' ' {
			key = key[1:]
		}
		for len(key) > 0 && key[len(key)-1] == ' ' {
			key = key[:len(key)-1]
		}
		if len(key) == 0 {
			continue
		}
		if e := t.addArgBytes(key, nil, argsNoValue); e != nil {
			err = e
		}
	}
	return
}

// GetBytes 返回逗号分隔的挂车标头名列表，用于 Trailer 声明标头。
func (t *Trailer) GetBytes() []byte {
	var dst []byte
	for i, n := 0, len(t.h); i < n; i++ {
		kv := &t.h[i]
		dst = append(dst, kv.key...)
		if i+1 < n {
			dst = append(dst, bytestr.StrCommaSP...)
		}
	}
	return dst
}

// AppendBytes 将挂车标头块追加到 dst 并返回，以空行 CRLF 结尾。
func (t *Trailer) AppendBytes(dst []byte) []byte {
	for i, n := 0, len(t.h); i < n; i++ {
		kv := &t.h[i]
		dst = appendHeaderLine(dst, kv.key, kv.value)
	}
	return append(dst, bytestr.StrCRLF...)
}

// Header 返回挂车标头的完整线格式表示。
func (t *Trailer) Header() []byte {
	return t.AppendBytes(nil)
}

// Reset 重置挂车标头以待复用。
func (t *Trailer) Reset() {
	t.h = t.h[:0]
}

// CopyTo 将挂车标头完整复制到 dst。
func (t *Trailer) CopyTo(dst *Trailer) {
	dst.Reset()
	dst.h = copyArgs(dst.h, t.h)
}

// IsBadTrailer 汇报标头 key 是否禁止作为挂车承载。
func IsBadTrailer(key []byte) bool {
	if len(key) == 0 {
		return true
	}

	switch key[0] | 0x20 {
	case 'a':
		return utils.CaseInsensitiveCompare(key, bytestr.StrAuthorization)
	case 'c':
		switch {
		case utils.CaseInsensitiveCompare(key, bytestr.StrConnection),
			utils.CaseInsensitiveCompare(key, bytestr.StrContentEncoding),
			utils.CaseInsensitiveCompare(key, bytestr.StrContentLength),
			utils.CaseInsensitiveCompare(key, bytestr.StrContentType),
			utils.CaseInsensitiveCompare(key, bytestr.StrContentRange):
			return true
		}
	case 'e':
		return utils.CaseInsensitiveCompare(key, bytestr.StrExpect)
	case 'h':
		return utils.CaseInsensitiveCompare(key, bytestr.StrHost)
	case 'm':
		return utils.CaseInsensitiveCompare(key, bytestr.StrMaxForwards)
	case 'p':
		return utils.CaseInsensitiveCompare(key, bytestr.StrProxyConnection) ||
			utils.CaseInsensitiveCompare(key, bytestr.StrProxyAuthenticate)
	case 'r':
		return utils.CaseInsensitiveCompare(key, bytestr.StrRange)
	case 't':
		return utils.CaseInsensitiveCompare(key, bytestr.StrTE) ||
			utils.CaseInsensitiveCompare(key, bytestr.StrTrailer) ||
			utils.CaseInsensitiveCompare(key, bytestr.StrTransferEncoding)
	case 'w':
		return utils.CaseInsensitiveCompare(key, bytestr.StrWWWAuthenticate)
	}
	return false
}

func getHeaderKeyBytes(key string) []byte {
	k := []byte(key)
	utils.NormalizeHeaderKey(k, false)
	return k
}
