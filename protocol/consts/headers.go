package consts

// 协议版本。
const (
	HTTP10 = "HTTP/1.0"
	HTTP11 = "HTTP/1.1"
)

// 常用标头名称。
const (
	HeaderConnection       = "Connection"
	HeaderContentLength    = "Content-Length"
	HeaderContentType      = "Content-Type"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderTrailer          = "Trailer"
	HeaderUpgrade          = "Upgrade"
	HeaderTE               = "TE"
	HeaderProxyConnection  = "Proxy-Connection"

	// HeaderStreamID 是从请求复制到响应的流关联标头，用于链路追踪。
	HeaderStreamID = "X-Stream-ID"

	// HeaderStreamStatus 和 HeaderStreamResult 是分块响应出错时
	// 通过挂车标头回传的流结果信息。
	HeaderStreamStatus = "Stream-Status"
	HeaderStreamResult = "Stream-Result"
)

// 常用内容类型。
const (
	MIMETextPlain       = "text/plain; charset=utf-8"
	MIMEApplicationJSON = "application/json; charset=utf-8"
	MIMEEventStream     = "text/event-stream"
)
