package hlog

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SystemLogger().Warnf("连接 %s 泄漏", "c-1")
	assert.Contains(t, buf.String(), systemLogPrefix)
	assert.Contains(t, buf.String(), "连接 c-1 泄漏")
}

func TestSystemLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SystemLogger().SetLevel(LevelWarn)
	defer SystemLogger().SetLevel(LevelTrace)

	SystemLogger().Debugf("不应输出")
	assert.NotContains(t, buf.String(), "不应输出")

	SystemLogger().Errorf("应当输出")
	assert.Contains(t, buf.String(), "应当输出")
}
