package protocol

import (
	"github.com/favbox/ripple/common/utils"
	"github.com/favbox/ripple/internal/bytesconv"
	"github.com/favbox/ripple/internal/bytestr"
	"github.com/favbox/ripple/internal/nocopy"
	"github.com/favbox/ripple/protocol/consts"
)

// RequestHeader 表示已解析请求中与响应写出相关的标头视图。
//
// 管道不解析请求，只读取上游解码器填好的字段。
type RequestHeader struct {
	noCopy nocopy.NoCopy

	connectionClose bool
	protocol        string

	h []argsKV
}

// SetProtocol 设置请求的协议版本，如 "HTTP/1.1"。
func (h *RequestHeader) SetProtocol(p string) {
	h.protocol = p
}

// GetProtocol 返回请求的协议版本，默认为 "HTTP/1.1"。
func (h *RequestHeader) GetProtocol() string {
	if h.protocol == "" {
		return consts.HTTP11
	}
	return h.protocol
}

// IsHTTP11 判断请求是否为 HTTP/1.1 协议。
func (h *RequestHeader) IsHTTP11() bool {
	return h.GetProtocol() == consts.HTTP11
}

// SetConnectionClose 标记请求要求关闭连接。
func (h *RequestHeader) SetConnectionClose(close bool) {
	h.connectionClose = close
}

// ConnectionClose 汇报请求侧是否要求关闭连接。
//
// HTTP/1.0 请求默认不保活。
func (h *RequestHeader) ConnectionClose() bool {
	return h.connectionClose || !h.IsHTTP11()
}

// Set 设置请求标头 key 的值。
func (h *RequestHeader) Set(key, value string) {
	if utils.CaseInsensitiveCompare(bytesconv.S2b(key), bytestr.StrConnection) {
		h.SetConnectionClose(utils.CaseInsensitiveCompare(bytesconv.S2b(value), bytestr.StrClose))
		return
	}
	h.h = setArgBytes(h.h, bytesconv.S2b(key), bytesconv.S2b(value), ArgsHasValue)
}

// Peek 返回请求标头 key 对应的值，不存在时返回 nil。
func (h *RequestHeader) Peek(key string) []byte {
	if utils.CaseInsensitiveCompare(bytesconv.S2b(key), bytestr.StrConnection) {
		if h.connectionClose {
			return bytestr.StrClose
		}
		return nil
	}
	return peekArgBytes(h.h, bytesconv.S2b(key))
}

// Get 以字符串形式返回请求标头 key 对应的值。
func (h *RequestHeader) Get(key string) string {
	return string(h.Peek(key))
}

// Reset 重置请求标头以待复用。
func (h *RequestHeader) Reset() {
	h.connectionClose = false
	h.protocol = ""
	h.h = h.h[:0]
}

// ResponseHeader 表示一个待序列化的 HTTP/1.1 响应标头。
//
// 零值可直接使用，默认状态码 200。
type ResponseHeader struct {
	noCopy nocopy.NoCopy

	statusCode      int
	contentLength   int
	contentLengthSet bool
	connectionClose bool

	contentType []byte

	h       []argsKV
	trailer Trailer
}

// SetStatusCode 设置响应状态码。
func (h *ResponseHeader) SetStatusCode(statusCode int) {
	h.statusCode = statusCode
}

// StatusCode 返回响应状态码，默认为 200。
func (h *ResponseHeader) StatusCode() int {
	if h.statusCode == 0 {
		return consts.StatusOK
	}
	return h.statusCode
}

// SetContentLength 设置响应的内容长度。
//
// 负值表示采用分块传输编码。
func (h *ResponseHeader) SetContentLength(contentLength int) {
	h.contentLength = contentLength
	h.contentLengthSet = true
}

// ContentLength 返回响应的内容长度。负值表示分块传输。
func (h *ResponseHeader) ContentLength() int {
	return h.contentLength
}

// ContentLengthSet 汇报用户是否显式声明过内容长度。
func (h *ResponseHeader) ContentLengthSet() bool {
	return h.contentLengthSet
}

// IsChunked 汇报响应是否采用分块传输编码。
func (h *ResponseHeader) IsChunked() bool {
	return h.contentLengthSet && h.contentLength < 0
}

// SetContentType 设置响应的内容类型。
func (h *ResponseHeader) SetContentType(contentType string) {
	h.contentType = append(h.contentType[:0], contentType...)
}

// ContentType 返回响应的内容类型。
func (h *ResponseHeader) ContentType() []byte {
	return h.contentType
}

// SetConnectionClose 标记响应发送完毕后要关闭连接。
func (h *ResponseHeader) SetConnectionClose(close bool) {
	h.connectionClose = close
}

// ConnectionClose 汇报响应是否携带 Connection: close。
func (h *ResponseHeader) ConnectionClose() bool {
	return h.connectionClose
}

// Trailer 返回响应的挂车标头集。
func (h *ResponseHeader) Trailer() *Trailer {
	return &h.trailer
}

// Set 设置响应标头 key 的值。
//
// Content-Length、Transfer-Encoding、Connection、Content-Type 与 Trailer
// 会被改写到专用字段，序列化时统一输出。
func (h *ResponseHeader) Set(key, value string) {
	h.SetCanonical(bytesconv.S2b(key), bytesconv.S2b(value))
}

// SetCanonical 以字节切片形式设置响应标头。
func (h *ResponseHeader) SetCanonical(key, value []byte) {
	if h.setSpecialHeader(key, value) {
		return
	}
	h.h = setArgBytes(h.h, key, value, ArgsHasValue)
}

// Add 追加响应标头 key 的值，同键可多值。
//
// 单例标头仍走 Set 语义。
func (h *ResponseHeader) Add(key, value string) {
	k := bytesconv.S2b(key)
	if h.setSpecialHeader(k, bytesconv.S2b(value)) {
		return
	}
	h.h = appendArgBytes(h.h, k, bytesconv.S2b(value), ArgsHasValue)
}

// setSpecialHeader 拦截需要专用字段承载的标头，命中时返回 true。
func (h *ResponseHeader) setSpecialHeader(key, value []byte) bool {
	if len(key) == 0 {
		return false
	}
	switch key[0] | 0x20 {
	case 'c':
		if utils.CaseInsensitiveCompare(key, bytestr.StrContentLength) {
			if n, _, err := bytesconv.ParseUintBuf(value); err == nil {
				h.SetContentLength(n)
			}
			return true
		}
		if utils.CaseInsensitiveCompare(key, bytestr.StrContentType) {
			h.contentType = append(h.contentType[:0], value...)
			return true
		}
		if utils.CaseInsensitiveCompare(key, bytestr.StrConnection) {
			if utils.CaseInsensitiveCompare(value, bytestr.StrClose) {
				h.SetConnectionClose(true)
			} else {
				h.SetConnectionClose(false)
				h.h = setArgBytes(h.h, key, value, ArgsHasValue)
			}
			return true
		}
	case 't':
		if utils.CaseInsensitiveCompare(key, bytestr.StrTransferEncoding) {
			if utils.CaseInsensitiveCompare(value, bytestr.StrChunked) {
				h.SetContentLength(-1)
			}
			return true
		}
		if utils.CaseInsensitiveCompare(key, bytestr.StrTrailer) {
			_ = h.trailer.SetTrailers(value)
			return true
		}
	}
	return false
}

// Peek 返回响应标头 key 对应的值，不存在时返回 nil。
func (h *ResponseHeader) Peek(key string) []byte {
	k := bytesconv.S2b(key)
	switch {
	case utils.CaseInsensitiveCompare(k, bytestr.StrContentType):
		return h.ContentType()
	case utils.CaseInsensitiveCompare(k, bytestr.StrConnection):
		if h.ConnectionClose() {
			return bytestr.StrClose
		}
		return peekArgBytes(h.h, k)
	}
	return peekArgBytes(h.h, k)
}

// Get 以字符串形式返回响应标头 key 对应的值。
func (h *ResponseHeader) Get(key string) string {
	return string(h.Peek(key))
}

// Del 删除响应标头中指定键的所有值。
func (h *ResponseHeader) Del(key string) {
	h.h = delAllArgsBytes(h.h, bytesconv.S2b(key))
}

// VisitAll 对响应中每个自定义标头应用函数 f。
func (h *ResponseHeader) VisitAll(f func(key, value []byte)) {
	visitArgs(h.h, f)
}

// IsUpgrade 汇报响应是否为协议升级握手（101 + Upgrade 标头）。
func (h *ResponseHeader) IsUpgrade() bool {
	if h.StatusCode() != consts.StatusSwitchingProtocols {
		return false
	}
	return hasArgBytes(h.h, bytestr.StrUpgrade)
}

// IsWebSocketUpgrade 汇报响应是否为 WebSocket 升级握手。
func (h *ResponseHeader) IsWebSocketUpgrade() bool {
	if h.StatusCode() != consts.StatusSwitchingProtocols {
		return false
	}
	return utils.CaseInsensitiveCompare(peekArgBytes(h.h, bytestr.StrUpgrade), bytestr.StrWebSocket)
}

// IsEventStream 汇报响应内容类型是否为 SSE 事件流。
//
// 事件流必须逐条分块推送，不参与长度优化。
func (h *ResponseHeader) IsEventStream() bool {
	ct := h.ContentType()
	if len(ct) < len(consts.MIMEEventStream) {
		return false
	}
	return utils.CaseInsensitiveCompare(ct[:len(consts.MIMEEventStream)], bytesconv.S2b(consts.MIMEEventStream))
}

// AppendBytes 将完整的状态行与标头块追加到 dst 并返回。
//
// 输出以空行 CRLF 结尾，可直接写入连接。
func (h *ResponseHeader) AppendBytes(dst []byte) []byte {
	statusCode := h.StatusCode()
	dst = append(dst, bytestr.StrHTTP11...)
	dst = append(dst, ' ')
	dst = bytesconv.AppendUint(dst, statusCode)
	dst = append(dst, ' ')
	dst = append(dst, consts.StatusMessage(statusCode)...)
	dst = append(dst, bytestr.StrCRLF...)

	if h.contentLengthSet {
		if h.contentLength >= 0 {
			dst = appendHeaderLine(dst, bytestr.StrContentLength, bytesconv.AppendUint(nil, h.contentLength))
		} else {
			dst = appendHeaderLine(dst, bytestr.StrTransferEncoding, bytestr.StrChunked)
		}
	}

	ct := h.ContentType()
	if len(ct) > 0 {
		dst = appendHeaderLine(dst, bytestr.StrContentType, ct)
	}

	for i, n := 0, len(h.h); i < n; i++ {
		kv := &h.h[i]
		dst = appendHeaderLine(dst, kv.key, kv.value)
	}

	if !h.trailer.Empty() {
		dst = appendHeaderLine(dst, bytestr.StrTrailer, h.trailer.GetBytes())
	}

	if h.connectionClose {
		dst = appendHeaderLine(dst, bytestr.StrConnection, bytestr.StrClose)
	}

	return append(dst, bytestr.StrCRLF...)
}

// Header 返回响应标头的完整线格式表示。
func (h *ResponseHeader) Header() []byte {
	return h.AppendBytes(nil)
}

// String 返回响应标头的字符串表示。
func (h *ResponseHeader) String() string {
	return string(h.Header())
}

// Reset 重置响应标头以待复用。
func (h *ResponseHeader) Reset() {
	h.statusCode = 0
	h.contentLength = 0
	h.contentLengthSet = false
	h.connectionClose = false
	h.contentType = h.contentType[:0]
	h.h = h.h[:0]
	h.trailer.Reset()
}

// CopyTo 将响应标头完整复制到 dst。
func (h *ResponseHeader) CopyTo(dst *ResponseHeader) {
	dst.Reset()
	dst.statusCode = h.statusCode
	dst.contentLength = h.contentLength
	dst.contentLengthSet = h.contentLengthSet
	dst.connectionClose = h.connectionClose
	dst.contentType = append(dst.contentType[:0], h.contentType...)
	dst.h = copyArgs(dst.h, h.h)
	h.trailer.CopyTo(&dst.trailer)
}

func appendHeaderLine(dst, key, value []byte) []byte {
	dst = append(dst, key...)
	dst = append(dst, bytestr.StrColonSP...)
	dst = append(dst, value...)
	return append(dst, bytestr.StrCRLF...)
}
