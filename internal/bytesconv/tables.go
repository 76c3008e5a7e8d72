package bytesconv

// 大小写与十六进制的查询表，启动时一次性构建。
var (
	ToLowerTable = func() (t [256]byte) {
		for i := 0; i < 256; i++ {
			c := byte(i)
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			t[i] = c
		}
		return
	}()

	ToUpperTable = func() (t [256]byte) {
		for i := 0; i < 256; i++ {
			c := byte(i)
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			t[i] = c
		}
		return
	}()

	// Hex2intTable 将十六进制字符映射为数值，非法字符映射为 16。
	Hex2intTable = func() (t [256]byte) {
		for i := 0; i < 256; i++ {
			c := byte(16)
			if i >= '0' && i <= '9' {
				c = byte(i) - '0'
			} else if i >= 'a' && i <= 'f' {
				c = byte(i) - 'a' + 10
			} else if i >= 'A' && i <= 'F' {
				c = byte(i) - 'A' + 10
			}
			t[i] = c
		}
		return
	}()
)
