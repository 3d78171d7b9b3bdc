package parsers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Registry 按文件扩展名分发解析器
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry 创建解析器注册表并注册默认解析器
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	r.Register(NewTextParser())
	r.Register(NewPDFParser())
	return r
}

// Register 注册解析器，同一扩展名后注册的覆盖先注册的
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Supported 判断文件名是否有对应的解析器
func (r *Registry) Supported(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract 根据文件名选择解析器并提取文本
func (r *Registry) Extract(filename string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	p, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return p.Parse(reader)
}
