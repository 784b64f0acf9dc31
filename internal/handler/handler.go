package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
	"github.com/user/moviecatalog/internal/validate"
	"go.uber.org/zap"
)

// Handler HTTP 处理器
type Handler struct {
	Repos   *repository.Repositories
	Config  *config.Config
	Logger  *zap.Logger
	Movies  *service.MovieService
	Limiter *middleware.IPRateLimiter
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config, logger *zap.Logger) *Handler {
	// 创建电影服务
	movies := service.NewMovieService(repos.Movie, service.MovieServiceOptions{
		SuggestCacheSize: cfg.SuggestCacheSize,
		SuggestCacheTTL:  cfg.SuggestCacheTTL,
		FiltersCacheTTL:  cfg.FiltersCacheTTL,
	})

	return &Handler{
		Repos:   repos,
		Config:  cfg,
		Logger:  logger,
		Movies:  movies,
		Limiter: middleware.NewIPRateLimiter(cfg.SuggestRateLimit, cfg.SuggestRateBurst),
	}
}

// StatusClientClosedRequest 客户端在响应前断开（沿用 nginx 的 499）
const StatusClientClosedRequest = 499

// clientGone 请求已被客户端取消时中止处理，不记为存储错误
func clientGone(c *gin.Context, err error) bool {
	if !errors.Is(err, context.Canceled) {
		return false
	}
	c.AbortWithStatus(StatusClientClosedRequest)
	return true
}

// parseID 解析路径中的 :id，失败时已写入 400
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "Invalid movie id")
		return 0, false
	}
	return id, true
}

// respondError 把服务层错误映射为 HTTP 响应
// 存储错误只记录日志，客户端只看到 serverMsg
func (h *Handler) respondError(c *gin.Context, err error, op, serverMsg string) {
	if clientGone(c, err) {
		return
	}

	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		utils.ValidationFailed(c, verrs)
	case errors.Is(err, service.ErrMovieNotFound):
		utils.NotFound(c, "Movie not found")
	case errors.Is(err, service.ErrVersionConflict):
		utils.Conflict(c, "Movie was modified by another request, reload and try again")
	default:
		h.Logger.Error(op+" failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
		_ = c.Error(err)
		utils.InternalServerError(c, serverMsg)
	}
}
