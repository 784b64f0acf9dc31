package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/repository/repotest"
	"github.com/user/moviecatalog/internal/router"
	"github.com/user/moviecatalog/internal/validate"
	"go.uber.org/zap"
)

func intPtr(n int) *int { return &n }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newAPIServer 启动挂载真实路由的测试服务
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := repotest.NewTestDB(t)
	cfg := &config.Config{
		SuggestCacheSize: 100,
		SuggestCacheTTL:  time.Minute,
		FiltersCacheTTL:  time.Minute,
		SuggestRateLimit: 1000,
		SuggestRateBurst: 1000,
		CORSAllowOrigin:  "*",
	}
	h := handler.NewHandler(repository.NewRepositories(db), cfg, zap.NewNop())
	srv := httptest.NewServer(router.NewEngine(h))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstRouter(t *testing.T) {
	srv := newAPIServer(t)
	c := New(srv.URL, WithTimeout(5*time.Second))
	ctx := context.Background()

	id, err := c.CreateMovie(ctx, &model.MovieInput{
		Title:       "Dune",
		Genre:       "Sci-Fi",
		ReleaseYear: intPtr(2021),
		Rating:      4,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	movie, err := c.GetMovie(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sci-fi", movie.Genre)
	assert.Nil(t, movie.Notes)

	rating, err := c.UpdateRating(ctx, id, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, rating)

	suggestions, err := c.Suggest(ctx, "dun")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Dune", suggestions[0].Title)

	suggestions, err = c.Suggest(ctx, "zzz")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].IsPlaceholder())

	movies, err := c.ListMovies(ctx, model.MovieQuery{Genre: "sci-fi", Year: 2021})
	require.NoError(t, err)
	require.Len(t, movies, 1)

	require.NoError(t, c.DeleteMovie(ctx, id))
	_, err = c.GetMovie(ctx, id)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(c.DeleteMovie(ctx, id)))
}

func TestClientValidatesLocally(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.CreateMovie(ctx, &model.MovieInput{Title: "-5 Days", Genre: "Drama", ReleaseYear: intPtr(2000)})
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Title cannot start with a negative number.", verrs["title"])

	err = c.UpdateMovie(ctx, 1, &model.MovieInput{Title: "Heat", Genre: "Western", ReleaseYear: intPtr(1995)})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "genre")

	_, err = c.UpdateRating(ctx, 1, 5.5)
	require.ErrorAs(t, err, &verrs)

	assert.Zero(t, calls.Load())
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": map[string]string{"title": "Title is required."},
		})
	}))
	c := New(srv.URL)

	err := c.UpdateMovie(context.Background(), 1, &model.MovieInput{Title: "Heat", Genre: "action", ReleaseYear: intPtr(1995)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Title is required.", apiErr.Fields["title"])

	srv.Close()
	_, err = c.Filters(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}
