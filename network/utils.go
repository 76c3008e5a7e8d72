package network

import "os"

// UnlinkUdsFile 删除残留的 unix 域套接字文件。
func UnlinkUdsFile(network, addr string) error {
	if network != "unix" {
		return nil
	}
	return os.Remove(addr)
}
