package parsers

import (
	"errors"
	"io"
)

// ErrUnsupportedType 文件类型没有对应的解析器
var ErrUnsupportedType = errors.New("不支持的文件类型")

// ErrEmptyContent 文件解析后没有可用文本
var ErrEmptyContent = errors.New("文件内容为空")

// Parser 从文件内容中提取纯文本
type Parser interface {
	// Parse 读取文件内容并提取文本
	Parse(reader io.Reader) (string, error)

	// Extensions 支持的文件扩展名（如 ".txt"）
	Extensions() []string
}
