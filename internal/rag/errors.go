package rag

import (
	"errors"
	"fmt"
)

// ErrUnavailable 表示某个依赖（向量后端、嵌入模型、生成模型）不可达或未初始化。
// 管线与索引工作流在边界处捕获该错误并降级，不向调用方继续抛出。
var ErrUnavailable = errors.New("依赖不可用")

// ValidationError 表示输入不合法（如向量维度不匹配），绝不静默纠正。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("参数校验失败: %s: %s", e.Field, e.Message)
}

// newDimensionError 构造维度不匹配的校验错误
func newDimensionError(want, got int) *ValidationError {
	return &ValidationError{
		Field:   "embedding",
		Message: fmt.Sprintf("向量维度不匹配: 期望 %d 实际 %d", want, got),
	}
}

// IsValidation 判断错误是否为参数校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
