package bytesconv

import "errors"

var (
	errEmptyInt            = errors.New("空整数")
	errUnexpectedFirstChar = errors.New("整数开头含有非预期字符")
	errTooLongInt          = errors.New("整数过长")
)
