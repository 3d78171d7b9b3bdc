package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aurapilot/internal/llm"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeVectorIndex struct {
	results    []*RetrievalResult
	queryErr   error
	queryCalls int
}

func (f *fakeVectorIndex) Ready() bool { return true }

func (f *fakeVectorIndex) Upsert(ctx context.Context, namespace string, records []*VectorRecord) (int, error) {
	return len(records), nil
}

func (f *fakeVectorIndex) Query(ctx context.Context, namespace string, queryVector []float32, topK int) ([]*RetrievalResult, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeVectorIndex) DeleteByDocument(ctx context.Context, namespace, documentID string) error {
	return nil
}
func (f *fakeVectorIndex) DeleteNamespace(ctx context.Context, namespace string) error { return nil }
func (f *fakeVectorIndex) Stats(ctx context.Context, namespace string) (*IndexStats, error) {
	return &IndexStats{Namespace: namespace}, nil
}

type fakeGenerator struct {
	answer     string
	err        error
	calls      int
	lastPrompt string
	lastSystem string
	lastTemp   float32
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastPrompt = req.Prompt
	f.lastSystem = req.SystemPrompt
	f.lastTemp = req.Temperature
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Name() string                     { return "fake" }
func (f *fakeGenerator) Model() string                    { return "fake-model" }
func (f *fakeGenerator) Healthy(ctx context.Context) bool { return true }

func newTestPipeline(t *testing.T, index VectorIndex, gen llm.Generator, maxContext int) *Pipeline {
	t.Helper()
	embedder := NewEmbeddingService(&fakeEmbeddingProvider{dimension: 4}, nil, 4, zaptest.NewLogger(t))
	return NewPipeline(embedder, index, gen, 5, maxContext, zaptest.NewLogger(t))
}

func TestPipelineQueryWithContext(t *testing.T) {
	index := &fakeVectorIndex{results: []*RetrievalResult{
		{ID: "d1_chunk_0", Text: "Paris is the capital of France.", Source: "geo.txt", Score: 0.93},
		{ID: "d1_chunk_1", Text: "France is in Europe.", Source: "geo.txt", Score: 0.81},
	}}
	gen := &fakeGenerator{answer: "Paris."}
	pipeline := newTestPipeline(t, index, gen, 4000)

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "What is the capital of France?"})

	require.Equal(t, StageDone, result.Stage)
	require.Equal(t, "Paris.", result.Response)
	require.True(t, result.ContextUsed)
	require.Equal(t, []string{
		"geo.txt (relevance: 0.93)",
		"geo.txt (relevance: 0.81)",
	}, result.Sources)

	require.Contains(t, gen.lastPrompt, "Use the following context to answer the question")
	require.Contains(t, gen.lastPrompt, "Paris is the capital of France.")
	require.Equal(t, defaultSystemPrompt, gen.lastSystem)
}

func TestPipelineQueryNoContext(t *testing.T) {
	index := &fakeVectorIndex{}
	gen := &fakeGenerator{answer: "I cannot answer that."}
	pipeline := newTestPipeline(t, index, gen, 4000)

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "anything"})

	require.Equal(t, StageDone, result.Stage)
	require.False(t, result.ContextUsed)
	require.Empty(t, result.Sources)
	require.Contains(t, gen.lastPrompt, "I don't have any documents to reference")
}

func TestPipelineQueryEmbeddingFailure(t *testing.T) {
	index := &fakeVectorIndex{}
	gen := &fakeGenerator{answer: "unused"}
	embedder := NewEmbeddingService(&fakeEmbeddingProvider{dimension: 4, failEmbed: true}, nil, 4, zaptest.NewLogger(t))
	pipeline := NewPipeline(embedder, index, gen, 5, 4000, zaptest.NewLogger(t))

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "hello"})

	require.Equal(t, StageFailed, result.Stage)
	require.Equal(t, "Error: Could not process query", result.Response)
	require.False(t, result.ContextUsed)
	// 向量化失败时不触发检索与生成
	require.Zero(t, index.queryCalls)
	require.Zero(t, gen.calls)
}

func TestPipelineQuerySearchFailureDegrades(t *testing.T) {
	index := &fakeVectorIndex{queryErr: errors.New("index offline")}
	gen := &fakeGenerator{answer: "fallback answer"}
	pipeline := newTestPipeline(t, index, gen, 4000)

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "hello"})

	// 检索失败按无上下文继续，不中断问答
	require.Equal(t, StageDone, result.Stage)
	require.False(t, result.ContextUsed)
	require.Equal(t, "fallback answer", result.Response)
}

func TestPipelineContextBudget(t *testing.T) {
	chunk := func(id string, words int, score float64) *RetrievalResult {
		return &RetrievalResult{
			ID:     id,
			Text:   strings.TrimSpace(strings.Repeat("word ", words)),
			Source: "doc.txt",
			Score:  score,
		}
	}
	index := &fakeVectorIndex{results: []*RetrievalResult{
		chunk("a", 40, 0.9),
		chunk("b", 40, 0.8),
		chunk("c", 40, 0.7),
	}}
	gen := &fakeGenerator{answer: "ok"}
	pipeline := newTestPipeline(t, index, gen, 100)

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "q"})

	// 40+40 在预算内，第三块超出后停止拼装
	require.Len(t, result.Sources, 2)
	require.True(t, result.ContextUsed)
}

func TestPipelineGenerationErrorReturnedAsText(t *testing.T) {
	index := &fakeVectorIndex{results: []*RetrievalResult{
		{ID: "x", Text: "context text", Source: "doc.txt", Score: 0.5},
	}}
	gen := &fakeGenerator{err: llm.ErrTimeout}
	pipeline := newTestPipeline(t, index, gen, 4000)

	result := pipeline.Query(context.Background(), QueryRequest{UserID: 1, Query: "q"})

	require.Equal(t, StageFailed, result.Stage)
	require.Equal(t, "Error: LLM request timed out. Please try again.", result.Response)
	// 检索结果仍随响应返回
	require.Len(t, result.Sources, 1)
	require.True(t, result.ContextUsed)
}

func TestPipelineCustomSystemPrompt(t *testing.T) {
	index := &fakeVectorIndex{}
	gen := &fakeGenerator{answer: "ok"}
	pipeline := newTestPipeline(t, index, gen, 4000)

	pipeline.Query(context.Background(), QueryRequest{
		UserID:       1,
		Query:        "q",
		SystemPrompt: "You are a pirate.",
		Temperature:  0.2,
	})

	require.Equal(t, "You are a pirate.", gen.lastSystem)
	require.InDelta(t, 0.2, gen.lastTemp, 1e-6)
}
