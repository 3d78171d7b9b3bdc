package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"aurapilot/internal/llm"
	"aurapilot/internal/metrics"
)

// 查询管线阶段
const (
	StageEmbeddingQuery    = "embedding_query"
	StageSearching         = "searching"
	StageAssemblingContext = "assembling_context"
	StageGenerating        = "generating"
	StageDone              = "done"
	StageFailed            = "failed"
)

const defaultSystemPrompt = "You are a helpful AI assistant that answers questions based on the provided context."

// QueryRequest 一次检索增强问答请求
type QueryRequest struct {
	UserID       uint
	Query        string
	SystemPrompt string
	Temperature  float32
}

// QueryResult 检索增强问答的结果。
// 生成失败时 Response 为面向用户的错误文案，Stage 记录终止阶段。
type QueryResult struct {
	Response    string   `json:"response"`
	Sources     []string `json:"sources"`
	ContextUsed bool     `json:"context_used"`
	Stage       string   `json:"stage"`
	Error       string   `json:"error,omitempty"`
}

// Pipeline 检索增强生成管线：向量化查询、检索、拼装上下文、生成回答。
// 阶段依次推进，任一阶段失败即终止，不做重试。
type Pipeline struct {
	embedder         *EmbeddingService
	index            VectorIndex
	generator        llm.Generator
	topK             int
	maxContextLength int
	logger           *zap.Logger
}

// NewPipeline 创建查询管线；topK 与 maxContextLength 为 0 时取默认值
func NewPipeline(embedder *EmbeddingService, index VectorIndex, generator llm.Generator, topK, maxContextLength int, logger *zap.Logger) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	if maxContextLength <= 0 {
		maxContextLength = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		embedder:         embedder,
		index:            index,
		generator:        generator,
		topK:             topK,
		maxContextLength: maxContextLength,
		logger:           logger,
	}
}

// Query 执行完整问答流程
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) *QueryResult {
	log := p.logger.With(zap.Uint("user_id", req.UserID))

	// 阶段一：查询向量化
	start := time.Now()
	queryVector, ok := p.embedder.EmbedOne(ctx, req.Query)
	metrics.QueryDuration.WithLabelValues(StageEmbeddingQuery).Observe(time.Since(start).Seconds())
	if !ok {
		log.Warn("查询向量化失败", zap.String("query", truncate(req.Query, 50)))
		metrics.QueriesTotal.WithLabelValues(StageFailed).Inc()
		return &QueryResult{
			Response: "Error: Could not process query",
			Sources:  []string{},
			Stage:    StageFailed,
			Error:    "embedding generation failed",
		}
	}

	// 阶段二：相似度检索；索引不可用按空结果降级
	start = time.Now()
	namespace := UserNamespace(req.UserID)
	results, err := p.index.Query(ctx, namespace, queryVector, p.topK)
	metrics.QueryDuration.WithLabelValues(StageSearching).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("向量检索失败", zap.String("namespace", namespace), zap.Error(err))
		results = nil
	}
	metrics.RetrievedChunks.Observe(float64(len(results)))

	// 阶段三：拼装上下文，按词数预算截断
	start = time.Now()
	contextChunks, sources := p.assembleContext(results)
	metrics.QueryDuration.WithLabelValues(StageAssemblingContext).Observe(time.Since(start).Seconds())
	metrics.ContextChunksUsed.Observe(float64(len(contextChunks)))

	prompt := p.buildPrompt(req.Query, contextChunks)
	if len(contextChunks) == 0 {
		log.Warn("查询没有可用上下文", zap.String("namespace", namespace))
	}

	// 阶段四：生成回答；失败时转为面向用户的错误文案
	start = time.Now()
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	answer, err := p.generator.Generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  req.Temperature,
	})
	metrics.QueryDuration.WithLabelValues(StageGenerating).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("生成回答失败", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues(StageFailed).Inc()
		return &QueryResult{
			Response:    llm.ErrorText(err),
			Sources:     sources,
			ContextUsed: len(contextChunks) > 0,
			Stage:       StageFailed,
			Error:       err.Error(),
		}
	}

	metrics.QueriesTotal.WithLabelValues(StageDone).Inc()
	return &QueryResult{
		Response:    answer,
		Sources:     sources,
		ContextUsed: len(contextChunks) > 0,
		Stage:       StageDone,
	}
}

// assembleContext 按检索得分顺序拼装上下文，累计词数超出预算即停止
func (p *Pipeline) assembleContext(results []*RetrievalResult) ([]string, []string) {
	contextChunks := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	totalWords := 0

	for _, result := range results {
		words := len(strings.Fields(result.Text))
		if totalWords+words > p.maxContextLength {
			break
		}
		contextChunks = append(contextChunks, result.Text)
		sources = append(sources, fmt.Sprintf("%s (relevance: %.2f)", sourceLabel(result.Source), result.Score))
		totalWords += words
	}
	return contextChunks, sources
}

// buildPrompt 构造带上下文的提示词；无上下文时使用兜底提示词
func (p *Pipeline) buildPrompt(query string, contextChunks []string) string {
	if len(contextChunks) > 0 {
		return fmt.Sprintf(`Use the following context to answer the question. If the context doesn't contain relevant information, say so.

Context:
%s

Question: %s

Answer:`, strings.Join(contextChunks, "\n\n"), query)
	}

	return fmt.Sprintf(`I don't have any documents to reference for this question. Please upload relevant documents first.

Question: %s

Answer: I don't have access to any uploaded documents to answer your question. Please upload some documents first, and then I can help you find information from them.`, query)
}

func sourceLabel(source string) string {
	if source == "" {
		return "Unknown"
	}
	return source
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
