// Package bytestr 定义高频使用的字节切片常量，避免运行时的重复转换。
package bytestr

var (
	DefaultServerName = []byte("ripple")

	StrCRLF      = []byte("\r\n")
	StrHTTP11    = []byte("HTTP/1.1")
	StrColonSP   = []byte(": ")
	StrCommaSP   = []byte(", ")
	StrSP        = []byte(" ")
	StrZero      = []byte("0")

	StrClose     = []byte("close")
	StrKeepAlive = []byte("keep-alive")
	StrChunked   = []byte("chunked")
	StrIdentity  = []byte("identity")
	StrUpgrade   = []byte("Upgrade")
	StrWebSocket = []byte("websocket")

	StrConnection        = []byte("Connection")
	StrContentLength     = []byte("Content-Length")
	StrContentType       = []byte("Content-Type")
	StrTransferEncoding  = []byte("Transfer-Encoding")
	StrTrailer           = []byte("Trailer")
	StrTE                = []byte("TE")
	StrHost              = []byte("Host")
	StrExpect            = []byte("Expect")
	StrMaxForwards       = []byte("Max-Forwards")
	StrAuthorization     = []byte("Authorization")
	StrRange             = []byte("Range")
	StrWWWAuthenticate   = []byte("WWW-Authenticate")
	StrProxyConnection   = []byte("Proxy-Connection")
	StrProxyAuthenticate = []byte("Proxy-Authenticate")
	StrContentEncoding   = []byte("Content-Encoding")
	StrContentRange      = []byte("Content-Range")

	StrEventStream = []byte("text/event-stream")

	// StrTerminatingChunk 是无挂车标头时的结束块。
	StrTerminatingChunk = []byte("0\r\n\r\n")
	// StrTerminatingChunkTrailer 是后跟挂车标头时的结束块。
	StrTerminatingChunkTrailer = []byte("0\r\n")
)
