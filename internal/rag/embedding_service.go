package rag

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"aurapilot/internal/metrics"
)

// EmbeddingService 向量化服务：封装底层 Provider，提供缓存与降级语义。
//
// 语义约定：
//   - 空文本或纯空白文本不产生向量（返回 ok=false）；
//   - Provider 不可用时进入降级模式，返回配置维度的零向量，保证上层流程可继续；
//   - 批量调用失败时逐条回退，单条失败只影响该条。
type EmbeddingService struct {
	provider EmbeddingProvider
	cache    *EmbeddingCache
	dim      int
	degraded atomic.Bool
	logger   *zap.Logger
}

// NewEmbeddingService 创建向量化服务；provider 可为 nil（直接进入降级模式），cache 可为 nil
func NewEmbeddingService(provider EmbeddingProvider, cache *EmbeddingCache, dimension int, logger *zap.Logger) *EmbeddingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EmbeddingService{
		provider: provider,
		cache:    cache,
		dim:      dimension,
		logger:   logger,
	}
	if provider == nil {
		svc.degraded.Store(true)
		logger.Warn("未配置向量化 Provider，进入降级模式，所有向量为零向量")
	} else if provider.GetDimension() > 0 {
		svc.dim = provider.GetDimension()
	}
	return svc
}

// Degraded 是否处于降级模式（零向量）
func (s *EmbeddingService) Degraded() bool {
	return s.degraded.Load()
}

// Dimension 向量维度
func (s *EmbeddingService) Dimension() int {
	return s.dim
}

// EmbedOne 对单条文本向量化；空文本返回 ok=false，降级模式返回零向量
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	if s.degraded.Load() {
		return make([]float32, s.dim), true
	}

	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, text, s.provider.GetModel()); ok {
			return vec, true
		}
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		metrics.EmbeddingFailuresTotal.Inc()
		s.logger.Warn("文本向量化失败", zap.Error(err))
		return nil, false
	}

	if s.cache != nil {
		s.cache.Set(ctx, text, s.provider.GetModel(), vec)
	}
	return vec, true
}

// EmbedMany 对多条文本向量化，结果与输入一一对应；
// 失败或空文本对应位置为 nil，整批失败时逐条回退。
func (s *EmbeddingService) EmbedMany(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	if s.degraded.Load() {
		for i, text := range texts {
			if strings.TrimSpace(text) != "" {
				results[i] = make([]float32, s.dim)
			}
		}
		return results
	}

	// 过滤空文本后批量调用，保持结果位置对应
	pending := make([]int, 0, len(texts))
	pendingTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if s.cache != nil {
			if vec, ok := s.cache.Get(ctx, text, s.provider.GetModel()); ok {
				results[i] = vec
				continue
			}
		}
		pending = append(pending, i)
		pendingTexts = append(pendingTexts, text)
	}

	if len(pending) == 0 {
		return results
	}

	vectors, err := s.provider.EmbedBatch(ctx, pendingTexts)
	if err != nil || len(vectors) != len(pendingTexts) {
		metrics.EmbeddingFailuresTotal.Inc()
		s.logger.Warn("批量向量化失败，逐条回退", zap.Error(err), zap.Int("count", len(pendingTexts)))
		for j, idx := range pending {
			if vec, errOne := s.provider.Embed(ctx, pendingTexts[j]); errOne == nil {
				results[idx] = vec
				if s.cache != nil {
					s.cache.Set(ctx, pendingTexts[j], s.provider.GetModel(), vec)
				}
			} else {
				metrics.EmbeddingFailuresTotal.Inc()
			}
		}
		return results
	}

	for j, idx := range pending {
		results[idx] = vectors[j]
		if s.cache != nil {
			s.cache.Set(ctx, pendingTexts[j], s.provider.GetModel(), vectors[j])
		}
	}
	return results
}
