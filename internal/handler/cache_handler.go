package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/dto"
	"github.com/coursescout/coursescout-api/internal/service"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/jobs"
	"github.com/coursescout/coursescout-api/pkg/response"
)

type cacheAdmin interface {
	Invalidate(ctx context.Context, pattern string) (int, int, error)
	Stats() service.CacheStats
}

type warmupQueue interface {
	Enqueue(job jobs.Job) error
}

// CacheHandler serves cache administration: clearing, warm-up, and stats.
type CacheHandler struct {
	cache  cacheAdmin
	queue  warmupQueue
	logger *zap.Logger
}

// NewCacheHandler constructs the cache admin handler. queue may be nil when
// warm-ups are disabled.
func NewCacheHandler(cache cacheAdmin, queue warmupQueue, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{cache: cache, queue: queue, logger: logger}
}

// Clear handles POST /cache/clear.
// @Summary Invalidate cached entries by pattern
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.ClearCacheResponse}
// @Router /cache/clear [post]
func (h *CacheHandler) Clear(c *gin.Context) {
	var req dto.ClearCacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
	}
	pattern := req.Pattern
	if pattern == "" {
		pattern = "*"
	}

	memoryDeleted, redisDeleted, err := h.cache.Invalidate(c.Request.Context(), pattern)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("cache cleared",
		zap.String("pattern", pattern),
		zap.Int("memory_deleted", memoryDeleted),
		zap.Int("redis_deleted", redisDeleted),
	)
	response.JSON(c, http.StatusOK, dto.ClearCacheResponse{
		Pattern:       pattern,
		MemoryDeleted: memoryDeleted,
		RedisDeleted:  redisDeleted,
	})
}

// Warm handles POST /cache/warm.
// @Summary Queue subjects for background pre-fetching
// @Tags cache
// @Accept json
// @Produce json
// @Success 202 {object} response.Envelope{data=dto.WarmCacheResponse}
// @Failure 503 {object} response.Envelope
// @Router /cache/warm [post]
func (h *CacheHandler) Warm(c *gin.Context) {
	var req dto.WarmCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if h.queue == nil {
		response.Error(c, appErrors.New("WARMUP_DISABLED", http.StatusServiceUnavailable, "cache warm-up is disabled"))
		return
	}

	queued := 0
	var rejected []string
	for _, subject := range req.Subjects {
		subject = strings.ToUpper(strings.TrimSpace(subject))
		err := h.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Payload: service.WarmupJob{Term: req.Term, Subject: subject},
		})
		if err != nil {
			rejected = append(rejected, subject)
			continue
		}
		queued++
	}

	response.JSON(c, http.StatusAccepted, dto.WarmCacheResponse{
		Term:     req.Term,
		Queued:   queued,
		Rejected: rejected,
	})
}

// Stats handles GET /cache/stats.
// @Summary Report cache tier hit counts since startup
// @Tags cache
// @Produce json
// @Success 200 {object} response.Envelope{data=service.CacheStats}
// @Router /cache/stats [get]
func (h *CacheHandler) Stats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.cache.Stats())
}
