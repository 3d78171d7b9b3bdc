package rag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPineconeStore(t *testing.T, handler http.HandlerFunc, dimension int) *PineconeStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewPineconeStore(PineconeOptions{
		APIKey:          "test-key",
		IndexHost:       server.URL,
		VectorDimension: dimension,
		HTTPClient:      server.Client(),
	})
}

func TestPineconeStoreUpsert(t *testing.T) {
	bodies := make(chan string, 4)
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/upsert", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		bodies <- string(raw)

		var req pineconeUpsertRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		_ = json.NewEncoder(w).Encode(pineconeUpsertResponse{UpsertedCount: len(req.Vectors)})
	}, 2)

	count, err := store.Upsert(context.Background(), "user_1", []*VectorRecord{
		{ID: "d1_chunk_0", DocumentID: "d1", Embedding: []float32{0.1, 0.2}, Text: "hello", Source: "a.txt"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(<-bodies), &body))
	require.Equal(t, "user_1", body["namespace"])
	vectors := body["vectors"].([]any)
	require.Len(t, vectors, 1)
	metadata := vectors[0].(map[string]any)["metadata"].(map[string]any)
	require.Equal(t, "hello", metadata["text"])
	require.Equal(t, "a.txt", metadata["source"])
	require.Equal(t, "d1", metadata["document_id"])
}

func TestPineconeStoreUpsertSplitsBatches(t *testing.T) {
	var requests int
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req pineconeUpsertRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		require.LessOrEqual(t, len(req.Vectors), 100)
		_ = json.NewEncoder(w).Encode(pineconeUpsertResponse{UpsertedCount: len(req.Vectors)})
	}, 2)

	records := make([]*VectorRecord, 250)
	for i := range records {
		records[i] = &VectorRecord{
			ID:        ChunkVectorID("doc", i),
			Embedding: []float32{1, 2},
		}
	}

	count, err := store.Upsert(context.Background(), "user_1", records)
	require.NoError(t, err)
	require.Equal(t, 250, count)
	require.Equal(t, 3, requests)
}

func TestPineconeStoreUpsertDimensionMismatch(t *testing.T) {
	var requests int
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}, 4)

	_, err := store.Upsert(context.Background(), "user_1", []*VectorRecord{
		{ID: "x", Embedding: []float32{0.1, 0.2}},
	})
	require.Error(t, err)
	require.True(t, IsValidation(err))
	// 维度校验在发起请求前完成
	require.Zero(t, requests)
}

func TestPineconeStoreQueryDimensionMismatch(t *testing.T) {
	var requests int
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}, 4)

	_, err := store.Query(context.Background(), "user_1", []float32{0.1, 0.2}, 5)
	require.Error(t, err)
	require.True(t, IsValidation(err))
	// 维度校验在发起请求前完成
	require.Zero(t, requests)
}

func TestPineconeStoreQuery(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)

		var req pineconeQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "user_9", req.Namespace)
		require.True(t, req.IncludeMetadata)

		_ = json.NewEncoder(w).Encode(pineconeQueryResponse{Matches: []pineconeMatch{
			{
				ID:    "d1_chunk_2",
				Score: 0.87,
				Metadata: map[string]any{
					"text":        "chunk text",
					"source":      "doc.pdf",
					"document_id": "d1",
					"chunk_index": float64(2),
				},
			},
		}})
	}, 2)

	results, err := store.Query(context.Background(), "user_9", []float32{0.5, 0.5}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "d1_chunk_2", results[0].ID)
	require.Equal(t, "chunk text", results[0].Text)
	require.Equal(t, "doc.pdf", results[0].Source)
	require.Equal(t, 2, results[0].ChunkIndex)
	require.InDelta(t, 0.87, results[0].Score, 1e-6)
}

func TestPineconeStoreUninitialized(t *testing.T) {
	store := NewPineconeStore(PineconeOptions{})
	require.False(t, store.Ready())

	// 未初始化时检索返回空结果而非错误
	results, err := store.Query(context.Background(), "user_1", []float32{1, 2}, 5)
	require.NoError(t, err)
	require.Empty(t, results)

	_, err = store.Upsert(context.Background(), "user_1", []*VectorRecord{
		{ID: "x", Embedding: make([]float32, 384)},
	})
	require.ErrorIs(t, err, ErrUnavailable)

	err = store.DeleteByDocument(context.Background(), "user_1", "doc")
	require.ErrorIs(t, err, ErrUnavailable)

	stats, err := store.Stats(context.Background(), "user_1")
	require.NoError(t, err)
	require.Zero(t, stats.VectorCount)
}

func TestPineconeStoreDeleteByDocument(t *testing.T) {
	var captured pineconeDeleteRequest
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}, 2)

	require.NoError(t, store.DeleteByDocument(context.Background(), "user_1", "doc-42"))
	require.Equal(t, "user_1", captured.Namespace)
	filter := captured.Filter["document_id"].(map[string]any)
	require.Equal(t, "doc-42", filter["$eq"])
}

func TestPineconeStoreServerError(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}, 2)

	_, err := store.Upsert(context.Background(), "user_1", []*VectorRecord{
		{ID: "x", Embedding: []float32{1, 2}},
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnavailable))
}
