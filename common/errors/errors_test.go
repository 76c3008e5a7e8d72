package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	baseError := errors.New("测试错误")
	err := &Error{
		Err:  baseError,
		Type: ErrorTypePrivate,
	}
	assert.Equal(t, baseError.Error(), err.Error())
	assert.True(t, errors.Is(err, baseError))

	assert.True(t, err.IsType(ErrorTypePrivate))
	assert.False(t, err.IsType(ErrorTypePublic))

	err.SetType(ErrorTypePublic)
	assert.True(t, err.IsType(ErrorTypePublic))

	err.SetMeta("元信息")
	assert.Equal(t, "元信息", err.Meta)
}

func TestErrorJSON(t *testing.T) {
	err := NewPublic("公开错误").SetMeta(map[string]any{"code": 500})
	jsonData := err.JSON().(map[string]any)
	assert.Equal(t, 500, jsonData["code"])
	assert.Equal(t, "公开错误", jsonData["error"])

	err2 := NewPrivate("私有错误")
	jsonData2 := err2.JSON().(map[string]any)
	assert.Equal(t, "私有错误", jsonData2["error"])
}

func TestNewf(t *testing.T) {
	err := NewPublicf("第 %d 个错误", 2)
	assert.Equal(t, "第 2 个错误", err.Error())
	assert.True(t, err.IsType(ErrorTypePublic))

	err = Newf(ErrorTypePrivate, nil, "第 %d 个错误", 3)
	assert.Equal(t, "第 3 个错误", err.Error())
	assert.True(t, err.IsType(ErrorTypePrivate))
}
