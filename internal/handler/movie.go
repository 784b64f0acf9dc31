package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
	"github.com/user/moviecatalog/internal/validate"
	"go.uber.org/zap"
)

// CreateMovie 新增电影
// POST /movies
func (h *Handler) CreateMovie(c *gin.Context) {
	var in model.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	movie, err := h.Movies.Create(c.Request.Context(), &in)
	if err != nil {
		h.respondError(c, err, "create movie", "Failed to add movie")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Movie added successfully",
		"movieId": movie.ID,
	})
}

// ListMovies 按筛选、搜索、排序参数查询
// GET /api/movies?genre=&year=&sort=&q=
func (h *Handler) ListMovies(c *gin.Context) {
	q, err := model.ParseMovieQuery(c.Request.URL.Query())
	if err != nil {
		utils.BadRequest(c, "Invalid year")
		return
	}

	movies, err := h.Movies.List(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err, "list movies", "Failed to fetch movies")
		return
	}

	c.JSON(http.StatusOK, movies)
}

// MovieFilters 返回所有可选的类型和年份
// GET /api/movies/filters
func (h *Handler) MovieFilters(c *gin.Context) {
	opts, err := h.Movies.Filters(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load filters", "Filter fetch error")
		return
	}

	c.JSON(http.StatusOK, opts)
}

// GetMovie 获取单部电影
// GET /movies/:id
func (h *Handler) GetMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	movie, err := h.Movies.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "get movie", "Failed to fetch movie")
		return
	}

	c.JSON(http.StatusOK, movie)
}

// SuggestMovies 输入联想
// GET /movies?q=
// 无结果和查询失败都返回单条占位记录
func (h *Handler) SuggestMovies(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("q"))
	if keyword == "" {
		utils.BadRequest(c, "Missing query parameter")
		return
	}

	results, err := h.Movies.Suggest(c.Request.Context(), keyword)
	if clientGone(c, err) {
		return
	}
	if err != nil {
		h.Logger.Error("suggest movies failed", zap.Error(err), zap.String("q", keyword))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, model.ErrorSuggestions())
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusOK, model.NoResultSuggestions())
		return
	}

	c.JSON(http.StatusOK, results)
}

// UpdateMovie 全量更新
// PUT /movie/:id
func (h *Handler) UpdateMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in model.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.Movies.Update(c.Request.Context(), id, &in); err != nil {
		h.respondError(c, err, "update movie", "Failed to update movie")
		return
	}

	utils.Message(c, http.StatusOK, "Movie updated successfully")
}

// UpdateMovieRating 仅更新评分
// PUT /movies/:id/rating
func (h *Handler) UpdateMovieRating(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in model.RatingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Rating must be a number between 0 and 5")
		return
	}

	rating, err := h.Movies.UpdateRating(c.Request.Context(), id, &in)
	if err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			utils.BadRequest(c, "Rating must be a number between 0 and 5")
			return
		}
		h.respondError(c, err, "update rating", "Failed to update rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rating":  rating,
	})
}

// DeleteMovie 删除电影
// DELETE /movie/:id
func (h *Handler) DeleteMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.Movies.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "delete movie", "Failed to delete movie")
		return
	}

	utils.Message(c, http.StatusOK, "Movie deleted successfully")
}
