package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeEmbeddingProvider struct {
	dimension  int
	embedCalls int
	batchCalls int
	failEmbed  bool
	failBatch  bool
}

func (f *fakeEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if f.failEmbed {
		return nil, errors.New("provider down")
	}
	vec := make([]float32, f.dimension)
	vec[0] = float32(len(text))
	return vec, nil
}

func (f *fakeEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.failBatch {
		return nil, errors.New("batch failed")
	}
	res := make([][]float32, len(texts))
	for i, txt := range texts {
		vec := make([]float32, f.dimension)
		vec[0] = float32(len(txt))
		res[i] = vec
	}
	return res, nil
}

func (f *fakeEmbeddingProvider) GetModel() string        { return "test-model" }
func (f *fakeEmbeddingProvider) GetProviderName() string { return "test-provider" }
func (f *fakeEmbeddingProvider) GetDimension() int       { return f.dimension }

func TestEmbedOneEmptyText(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	vec, ok := svc.EmbedOne(context.Background(), "")
	require.False(t, ok)
	require.Nil(t, vec)

	vec, ok = svc.EmbedOne(context.Background(), "   \t\n ")
	require.False(t, ok)
	require.Nil(t, vec)
	require.Zero(t, provider.embedCalls)
}

func TestEmbedOneSuccess(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	vec, ok := svc.EmbedOne(context.Background(), "hello")
	require.True(t, ok)
	require.Len(t, vec, 4)
	require.False(t, svc.Degraded())
}

func TestEmbedOneProviderError(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4, failEmbed: true}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	vec, ok := svc.EmbedOne(context.Background(), "hello")
	require.False(t, ok)
	require.Nil(t, vec)
}

func TestDegradedModeReturnsZeroVectors(t *testing.T) {
	svc := NewEmbeddingService(nil, nil, 8, zaptest.NewLogger(t))
	require.True(t, svc.Degraded())

	vec, ok := svc.EmbedOne(context.Background(), "anything")
	require.True(t, ok)
	require.Equal(t, make([]float32, 8), vec)

	// 降级模式下空文本仍然不产生向量
	_, ok = svc.EmbedOne(context.Background(), "  ")
	require.False(t, ok)

	results := svc.EmbedMany(context.Background(), []string{"a", "", "b"})
	require.Len(t, results, 3)
	require.Equal(t, make([]float32, 8), results[0])
	require.Nil(t, results[1])
	require.Equal(t, make([]float32, 8), results[2])
}

func TestEmbedManyPositionsPreserved(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	results := svc.EmbedMany(context.Background(), []string{"first", "", "third"})
	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	require.Nil(t, results[1])
	require.NotNil(t, results[2])
	require.Equal(t, 1, provider.batchCalls)
}

func TestEmbedManyBatchFailureFallsBackPerItem(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4, failBatch: true}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	results := svc.EmbedMany(context.Background(), []string{"one", "two"})
	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	require.Equal(t, 1, provider.batchCalls)
	require.Equal(t, 2, provider.embedCalls)
}

func TestEmbedManyAllFail(t *testing.T) {
	provider := &fakeEmbeddingProvider{dimension: 4, failBatch: true, failEmbed: true}
	svc := NewEmbeddingService(provider, nil, 4, zaptest.NewLogger(t))

	results := svc.EmbedMany(context.Background(), []string{"one", "two"})
	require.Nil(t, results[0])
	require.Nil(t, results[1])
}
