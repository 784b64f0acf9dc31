package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/middleware"
)

// NewEngine 创建 gin 引擎并挂载全局中间件
func NewEngine(h *handler.Handler) *gin.Engine {
	r := gin.New()

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Logger))
	r.Use(middleware.Recovery(h.Logger))
	r.Use(middleware.Security())
	r.Use(middleware.CORS(h.Config.CORSAllowOrigin))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)

	// ==================== 电影记录 ====================
	r.POST("/movies", h.CreateMovie)
	r.GET("/movies", middleware.RateLimit(h.Limiter), h.SuggestMovies)
	r.GET("/movies/:id", h.GetMovie)
	r.PUT("/movies/:id/rating", h.UpdateMovieRating)
	r.PUT("/movie/:id", h.UpdateMovie)
	r.DELETE("/movie/:id", h.DeleteMovie)

	// ==================== 列表与筛选 ====================
	api := r.Group("/api")
	{
		api.GET("/movies", h.ListMovies)
		api.GET("/movies/filters", h.MovieFilters)
	}
}
