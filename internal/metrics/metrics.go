package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 检索与问答指标
var (
	// QueriesTotal RAG 问答总数
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_queries_total",
			Help: "RAG 问答总数",
		},
		[]string{"status"},
	)

	// QueryDuration RAG 问答耗时（秒），按阶段划分
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_query_stage_duration_seconds",
			Help:    "RAG 各阶段耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// RetrievedChunks 单次检索返回的分块数量
	RetrievedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragchat_retrieved_chunks",
			Help:    "单次检索返回的分块数量分布",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// ContextChunksUsed 上下文装配实际采用的分块数量
	ContextChunksUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragchat_context_chunks_used",
			Help:    "进入生成上下文的分块数量分布",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

// 索引指标
var (
	// DocumentsIndexedTotal 文档索引结果总数
	DocumentsIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_documents_indexed_total",
			Help: "文档索引总数",
		},
		[]string{"status"},
	)

	// ChunksUpsertedTotal 写入向量索引的分块总数
	ChunksUpsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragchat_chunks_upserted_total",
			Help: "写入向量索引的分块总数",
		},
	)

	// IndexingDuration 文档索引耗时（秒）
	IndexingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragchat_indexing_duration_seconds",
			Help:    "文档索引耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// EmbeddingFailuresTotal 向量化失败（单条）总数
	EmbeddingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragchat_embedding_failures_total",
			Help: "向量化失败的分块总数",
		},
	)
)
