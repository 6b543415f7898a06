package errors

import "errors"

var (
	// ErrCodeSpaceExhausted 唯一码生成在最大重试次数内始终冲突
	ErrCodeSpaceExhausted = errors.New("唯一码生成重试次数耗尽")

	// ErrInvariantViolation 存储层出现了本应被唯一约束阻止的数据
	ErrInvariantViolation = errors.New("数据不变量被破坏")
)
