// Package utils 提供标头处理等通用辅助函数。
package utils

import (
	"github.com/favbox/ripple/internal/bytesconv"
)

// H 是 map[string]any 的快捷方式。
type H map[string]any

// CaseInsensitiveCompare 不分大小写，高效比较两者是否相同。
func CaseInsensitiveCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i, n := 0, len(a); i < n; i++ {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// NormalizeHeaderKey 规范标头键：将首字母及破折号后首字母转大写，其他转小写。
func NormalizeHeaderKey(b []byte, disableNormalizing bool) {
	if disableNormalizing {
		return
	}

	n := len(b)
	if n == 0 {
		return
	}

	// 首字母转大写
	b[0] = bytesconv.ToUpperTable[b[0]]

	// - 后面的字母转大写，其他字母转小写
	for i := 1; i < n; i++ {
		p := &b[i]
		if *p == '-' {
			i++
			if i < n {
				b[i] = bytesconv.ToUpperTable[b[i]]
			}
			continue
		}
		*p = bytesconv.ToLowerTable[*p]
	}
}

// Assert 断言 guard 为真，否则以 text 触发恐慌。
func Assert(guard bool, text string) {
	if !guard {
		panic(text)
	}
}
