package rag

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker 文档分块器，按句子边界聚合，以词数控制块大小
type Chunker struct {
	// ChunkSize 单块最大词数
	ChunkSize int
	// ChunkOverlap 相邻块重叠词数。配置保留但算法不应用：
	// 原始实现同样只读取不使用，保持行为兼容，不要自行补上重叠逻辑
	ChunkOverlap int

	encoding *tiktoken.Tiktoken
}

// Chunk 单个分块，Index 为文档内从 0 开始的序号
type Chunk struct {
	Text       string
	Index      int
	Source     string
	TokenCount int
}

// NewChunker 创建分块器
// chunkSize: 单块最大词数；chunkOverlap: 保留参数，不参与分块
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}

	// token 数仅作为分块元数据记录，编码器取不到时降级为 0
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		encoding = nil
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		encoding:     encoding,
	}
}

// ChunkText 清洗文本并按句子切分成块
// text: 原始文本；source: 来源文件名（写入分块元数据）
// 返回的分块顺序与文档顺序一致，下游依赖该顺序生成 chunk_index
func (c *Chunker) ChunkText(text, source string) []Chunk {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil
	}

	sentences := splitSentences(cleaned)

	chunks := make([]Chunk, 0)
	var current strings.Builder
	currentWords := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, c.newChunk(current.String(), len(chunks), source))
		current.Reset()
		currentWords = 0
	}

	for _, sentence := range sentences {
		words := countWords(sentence)
		// 超限则封存当前块，用本句开启新块。
		// 单句超过 ChunkSize 时整句独立成块（已知限制，不再二次切分）
		if currentWords > 0 && currentWords+words > c.ChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		currentWords += words
	}
	flush()

	return chunks
}

func (c *Chunker) newChunk(text string, index int, source string) Chunk {
	return Chunk{
		Text:       strings.TrimSpace(text),
		Index:      index,
		Source:     source,
		TokenCount: c.countTokens(text),
	}
}

// countTokens 估算分块 token 数（仅元数据用途）
func (c *Chunker) countTokens(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CleanText 规范化文本：压缩连续空白为单个空格，去除不可打印控制字符
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	// Fields 同时压缩空格、换行、制表符
	return strings.Join(strings.Fields(b.String()), " ")
}

// splitSentences 按标点边界切句：.!? 之后紧跟空白即视为句子结束
func splitSentences(text string) []string {
	sentences := make([]string, 0)
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

// countWords 统计词数（以空白分隔）
func countWords(text string) int {
	return len(strings.Fields(text))
}
