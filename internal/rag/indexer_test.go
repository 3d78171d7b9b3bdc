package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestIndexer(t *testing.T, provider EmbeddingProvider, index VectorIndex) (*Indexer, *DocumentService) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	embedder := NewEmbeddingService(provider, nil, 4, logger)
	docs := NewDocumentService(nil, NewDocumentRegistry(), index, logger)
	indexer := NewIndexer(nil, NewChunker(500, 50), embedder, index, docs, logger)
	return indexer, docs
}

func TestIndexDocumentHappyPath(t *testing.T) {
	store := NewMemoryStore(4)
	indexer, docs := newTestIndexer(t, &fakeEmbeddingProvider{dimension: 4}, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 1, "notes.txt", "text/plain", 64)
	require.NoError(t, err)
	require.Equal(t, DocumentStatusUploaded, doc.Status)

	content := []byte("First sentence of the document. Second sentence with more words in it.")
	result, err := indexer.IndexDocument(ctx, 1, doc.ID, "notes.txt", content)
	require.NoError(t, err)
	require.Equal(t, DocumentStatusIndexed, result.Status)
	require.Equal(t, 1, result.ChunkCount)
	require.Equal(t, 1, result.Upserted)

	stored, err := docs.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, DocumentStatusIndexed, stored.Status)
	require.Equal(t, 1, stored.ChunkCount)

	// 向量 ID 为 {document_id}_chunk_{index}
	results, err := store.Query(ctx, UserNamespace(1), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, ChunkVectorID(doc.ID, 0), results[0].ID)
	require.Equal(t, "notes.txt", results[0].Source)
}

func TestIndexDocumentMultipleChunks(t *testing.T) {
	store := NewMemoryStore(4)
	indexer, docs := newTestIndexer(t, &fakeEmbeddingProvider{dimension: 4}, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 7, "long.txt", "text/plain", 0)
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("sentence number n has exactly ten words in it now. ")
	}
	result, err := indexer.IndexDocument(ctx, 7, doc.ID, "long.txt", []byte(sb.String()))
	require.NoError(t, err)
	require.Equal(t, DocumentStatusIndexed, result.Status)
	require.Equal(t, 3, result.ChunkCount)
	require.Equal(t, 3, result.Upserted)

	stats, err := store.Stats(ctx, UserNamespace(7))
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.VectorCount)
}

func TestIndexDocumentUnsupportedType(t *testing.T) {
	store := NewMemoryStore(4)
	indexer, docs := newTestIndexer(t, &fakeEmbeddingProvider{dimension: 4}, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 1, "image.png", "image/png", 10)
	require.NoError(t, err)

	result, err := indexer.IndexDocument(ctx, 1, doc.ID, "image.png", []byte{0x89, 0x50})
	require.NoError(t, err)
	require.Equal(t, DocumentStatusFailed, result.Status)

	stored, err := docs.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, DocumentStatusFailed, stored.Status)
	require.NotEmpty(t, stored.Error)
}

func TestIndexDocumentAllEmbeddingsFail(t *testing.T) {
	store := NewMemoryStore(4)
	provider := &fakeEmbeddingProvider{dimension: 4, failEmbed: true, failBatch: true}
	indexer, docs := newTestIndexer(t, provider, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 1, "notes.txt", "text/plain", 0)
	require.NoError(t, err)

	result, err := indexer.IndexDocument(ctx, 1, doc.ID, "notes.txt", []byte("Some valid text here."))
	require.NoError(t, err)
	require.Equal(t, DocumentStatusFailed, result.Status)

	stats, err := store.Stats(ctx, UserNamespace(1))
	require.NoError(t, err)
	require.Zero(t, stats.VectorCount)
}

func TestIndexDocumentDimensionMismatch(t *testing.T) {
	// 索引维度与向量维度不一致时整批拒绝，文档置为 failed
	store := NewMemoryStore(8)
	indexer, docs := newTestIndexer(t, &fakeEmbeddingProvider{dimension: 4}, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 1, "notes.txt", "text/plain", 0)
	require.NoError(t, err)

	result, err := indexer.IndexDocument(ctx, 1, doc.ID, "notes.txt", []byte("Valid text content."))
	require.NoError(t, err)
	require.Equal(t, DocumentStatusFailed, result.Status)

	stored, err := docs.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Contains(t, stored.Error, "写入向量索引失败")
}

func TestIndexDocumentReindexIdempotent(t *testing.T) {
	store := NewMemoryStore(4)
	indexer, docs := newTestIndexer(t, &fakeEmbeddingProvider{dimension: 4}, store)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, 1, "notes.txt", "text/plain", 0)
	require.NoError(t, err)

	content := []byte("A single sentence to index.")
	_, err = indexer.IndexDocument(ctx, 1, doc.ID, "notes.txt", content)
	require.NoError(t, err)
	_, err = indexer.IndexDocument(ctx, 1, doc.ID, "notes.txt", content)
	require.NoError(t, err)

	// 重复索引同一文档不产生重复向量
	stats, err := store.Stats(ctx, UserNamespace(1))
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.VectorCount)
}
