package protocol

import (
	"testing"

	errs "github.com/favbox/ripple/common/errors"
	"github.com/stretchr/testify/assert"
)

func TestTrailerSetGet(t *testing.T) {
	var tr Trailer
	assert.True(t, tr.Empty())

	assert.Nil(t, tr.Set("checksum", "crc32:1a2b3c4d"))
	assert.False(t, tr.Empty())

	// 键被规范化
	assert.Equal(t, "crc32:1a2b3c4d", tr.Get("Checksum"))
	assert.Equal(t, "crc32:1a2b3c4d", tr.Get("checksum"))

	tr.Del("checksum")
	assert.True(t, tr.Empty())
}

func TestTrailerBadKeys(t *testing.T) {
	var tr Trailer
	for _, key := range []string{
		"Content-Length",
		"Content-Type",
		"Content-Encoding",
		"Content-Range",
		"Connection",
		"Transfer-Encoding",
		"Trailer",
		"Host",
		"Expect",
		"Max-Forwards",
		"TE",
		"Range",
		"Authorization",
		"WWW-Authenticate",
		"Proxy-Connection",
		"Proxy-Authenticate",
	} {
		assert.ErrorIs(t, tr.Set(key, "v"), errs.ErrBadTrailer, key)
	}
	assert.True(t, tr.Empty())

	assert.Nil(t, tr.Set("Exec-Time", "5ms"))
}

func TestTrailerSetTrailers(t *testing.T) {
	var tr Trailer
	assert.Nil(t, tr.SetTrailers([]byte("Checksum, Exec-Time")))
	assert.Equal(t, "Checksum, Exec-Time", string(tr.GetBytes()))

	// 声明列表中夹带非法标头时保留合法项并报错
	assert.NotNil(t, tr.SetTrailers([]byte("Checksum,Content-Length")))
	assert.Equal(t, "Checksum", string(tr.GetBytes()))
}

func TestTrailerUpdateArgBytes(t *testing.T) {
	var tr Trailer
	assert.Nil(t, tr.SetTrailers([]byte("Checksum")))
	assert.Nil(t, tr.UpdateArgBytes([]byte("Checksum"), []byte("crc32:ffffffff")))
	assert.Equal(t, "crc32:ffffffff", tr.Get("Checksum"))

	// 已有值的键不再被回填覆盖
	assert.Nil(t, tr.UpdateArgBytes([]byte("Checksum"), []byte("crc32:00000000")))
	assert.Equal(t, "crc32:ffffffff", tr.Get("Checksum"))
}

func TestTrailerAppendBytes(t *testing.T) {
	var tr Trailer
	assert.Nil(t, tr.Set("Checksum", "crc32:1a2b3c4d"))
	assert.Nil(t, tr.Set("Exec-Time", "5ms"))
	assert.Equal(t, "Checksum: crc32:1a2b3c4d\r\nExec-Time: 5ms\r\n\r\n", string(tr.Header()))

	var empty Trailer
	assert.Equal(t, "\r\n", string(empty.Header()))
}

func TestTrailerCopyTo(t *testing.T) {
	var tr Trailer
	assert.Nil(t, tr.Set("Checksum", "crc32:1a2b3c4d"))

	var dst Trailer
	tr.CopyTo(&dst)
	tr.Reset()

	assert.True(t, tr.Empty())
	assert.Equal(t, "crc32:1a2b3c4d", dst.Get("Checksum"))
}
