package api

import (
	"fmt"
	"time"

	chatHandlers "aurapilot/api/handlers/chat"
	documentHandlers "aurapilot/api/handlers/documents"
	healthHandlers "aurapilot/api/handlers/health"

	"aurapilot/internal/config"
	"aurapilot/internal/infra/queue"
	"aurapilot/internal/llm"
	"aurapilot/internal/logger"
	"aurapilot/internal/rag"
	"aurapilot/internal/rag/parsers"
	"aurapilot/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AppContainer 应用容器，集中管理服务依赖
type AppContainer struct {
	DB          *gorm.DB
	Config      *config.Config
	RedisClient redis.UniversalClient
	QueueClient queue.Client

	Embedder  *rag.EmbeddingService
	Index     rag.VectorIndex
	Generator llm.Generator
	Parsers   *parsers.Registry
	Documents *rag.DocumentService
	Indexer   *rag.Indexer
	Pipeline  *rag.Pipeline

	Worker *worker.Server
}

// BuildContainer 按配置装配全部服务依赖
func BuildContainer(db *gorm.DB, redisClient redis.UniversalClient, cfg *config.Config) (*AppContainer, error) {
	log := logger.Get()

	// 向量化：Provider 缺失时服务进入降级模式
	var provider rag.EmbeddingProvider
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey != "" {
		provider = rag.NewOpenAIEmbeddingProvider(
			cfg.Embedding.APIKey,
			cfg.Embedding.BaseURL,
			cfg.Embedding.Model,
			cfg.Embedding.Dimension,
		)
	}

	var embedCache *rag.EmbeddingCache
	if redisClient != nil && cfg.Embedding.CacheTTLHours > 0 {
		embedCache = rag.NewEmbeddingCache(redisClient, time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour)
	}
	embedder := rag.NewEmbeddingService(provider, embedCache, cfg.Embedding.Dimension, log)

	// 向量索引后端
	var index rag.VectorIndex
	switch cfg.Vector.Backend {
	case "pinecone":
		index = rag.NewPineconeStore(rag.PineconeOptions{
			APIKey:          cfg.Vector.Pinecone.APIKey,
			IndexHost:       cfg.Vector.Pinecone.IndexHost,
			VectorDimension: embedder.Dimension(),
			TimeoutSeconds:  cfg.Vector.Pinecone.TimeoutSeconds,
			UpsertBatchSize: cfg.Vector.UpsertBatchSize,
		})
	case "pgvector":
		store, err := rag.NewPGVectorStore(db, embedder.Dimension())
		if err != nil {
			return nil, fmt.Errorf("初始化 pgvector 索引失败: %w", err)
		}
		index = store
	case "memory":
		index = rag.NewMemoryStore(embedder.Dimension())
	default:
		return nil, fmt.Errorf("不支持的向量后端: %s (可选: pinecone, pgvector, memory)", cfg.Vector.Backend)
	}

	// 生成模型后端
	var generator llm.Generator
	switch cfg.LLM.Provider {
	case "openai":
		generator = llm.NewOpenAIGenerator(llm.OpenAIOptions{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	default:
		generator = llm.NewOllamaGenerator(llm.OllamaOptions{
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
	}

	parserRegistry := parsers.NewRegistry()
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	documents := rag.NewDocumentService(db, rag.NewDocumentRegistry(), index, log)
	indexer := rag.NewIndexer(parserRegistry, chunker, embedder, index, documents, log)
	pipeline := rag.NewPipeline(embedder, index, generator, cfg.RAG.TopK, cfg.RAG.MaxContextLength, log)

	queueClient := queue.NewClient(cfg.Redis)
	workerSrv := worker.NewServer(cfg.Redis, indexer, documents, log)

	return &AppContainer{
		DB:          db,
		Config:      cfg,
		RedisClient: redisClient,
		QueueClient: queueClient,
		Embedder:    embedder,
		Index:       index,
		Generator:   generator,
		Parsers:     parserRegistry,
		Documents:   documents,
		Indexer:     indexer,
		Pipeline:    pipeline,
		Worker:      workerSrv,
	}, nil
}

// SetupRouter 创建 HTTP 路由
func SetupRouter(container *AppContainer) *gin.Engine {
	cfg := container.Config
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), Metrics(), CORS())

	healthHandler := healthHandlers.NewHandler(container.DB, container.Index, container.Embedder)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	documentHandler := documentHandlers.NewHandler(
		container.Documents,
		container.Index,
		container.QueueClient,
		container.Parsers,
		cfg.Storage.UploadDir,
		cfg.Storage.MaxFileSize,
		logger.Get(),
	)
	chatHandler := chatHandlers.NewHandler(container.Pipeline, logger.Get())

	v1 := router.Group("/api/v1")
	v1.Use(Identify(cfg.Auth))
	{
		docs := v1.Group("/documents")
		{
			docs.POST("/upload", documentHandler.Upload)
			docs.GET("", documentHandler.List)
			docs.GET("/stats", documentHandler.IndexStats)
			docs.GET("/:id", documentHandler.Get)
			docs.DELETE("/:id", documentHandler.Delete)
			docs.GET("/:id/vector-status", documentHandler.VectorStatus)
		}

		chat := v1.Group("/chat")
		{
			chat.POST("/query", chatHandler.Query)
			chat.GET("/messages", chatHandler.Messages)
			chat.DELETE("/history", chatHandler.ClearHistory)
		}
	}

	return router
}
