package parsers

import (
	"fmt"
	"io"
	"strings"
)

// TextParser 纯文本解析器，覆盖 .txt 与 Markdown
type TextParser struct{}

// NewTextParser 创建文本解析器
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse 解析文本文件
func (p *TextParser) Parse(reader io.Reader) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// Extensions 支持的文件扩展名
func (p *TextParser) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}
