package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLogger(t, zap.NewNop())
}

func newTestServerWithLogger(t *testing.T, logger *zap.Logger) *testServer {
	t.Helper()
	db := repotest.NewTestDB(t)
	cfg := &config.Config{
		SuggestCacheSize: 100,
		SuggestCacheTTL:  time.Minute,
		FiltersCacheTTL:  time.Minute,
		SuggestRateLimit: 1000,
		SuggestRateBurst: 1000,
		CORSAllowOrigin:  "*",
	}
	h := handler.NewHandler(repository.NewRepositories(db), cfg, logger)
	return &testServer{engine: router.NewEngine(h), db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func dune() map[string]any {
	return map[string]any{
		"title":        "Dune",
		"genre":        "Sci-Fi",
		"release_year": 2021,
		"notes":        "",
		"rating":       4,
	}
}

func (s *testServer) create(t *testing.T, body map[string]any) int {
	t.Helper()
	w := s.do(t, http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		Message string `json:"message"`
		MovieID int    `json:"movieId"`
	}](t, w)
	assert.Equal(t, "Movie added successfully", resp.Message)
	return resp.MovieID
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, dune())

	w := s.do(t, http.MethodGet, "/movies/"+strconv.Itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	movie := decode[model.Movie](t, w)
	assert.Equal(t, id, movie.ID)
	assert.Equal(t, "Dune", movie.Title)
	assert.Equal(t, "sci-fi", movie.Genre)
	assert.Equal(t, 2021, movie.ReleaseYear)
	require.NotNil(t, movie.Notes)
	assert.Equal(t, "", *movie.Notes)
	assert.Equal(t, 4.0, movie.Rating)
	assert.False(t, movie.CreatedAt.IsZero())
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)

	body := dune()
	body["title"] = "1984"
	body["release_year"] = 1899
	w := s.do(t, http.MethodPost, "/movies", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Equal(t, "Title cannot contain only numbers.", resp.Fields["title"])
	assert.Contains(t, resp.Fields["release_year"], "Year must be between 1900")

	w = s.do(t, http.MethodPost, "/movies", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}

func TestListMovies(t *testing.T) {
	s := newTestServer(t)
	repotest.Seed(t, s.db,
		repotest.Movie("The Matrix", "sci-fi", 1999),
		repotest.Movie("Dune", "sci-fi", 2021),
		repotest.Movie("Airplane!", "comedy", 1980),
	)

	t.Run("year descending", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/movies?sort=yearDesc", nil)
		require.Equal(t, http.StatusOK, w.Code)
		movies := decode[[]model.Movie](t, w)
		require.Len(t, movies, 3)
		assert.Equal(t, []int{2021, 1999, 1980},
			[]int{movies[0].ReleaseYear, movies[1].ReleaseYear, movies[2].ReleaseYear})
	})

	t.Run("genre and year intersect", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/movies?genre=Sci-Fi&year=1999", nil)
		require.Equal(t, http.StatusOK, w.Code)
		movies := decode[[]model.Movie](t, w)
		require.Len(t, movies, 1)
		assert.Equal(t, "The Matrix", movies[0].Title)
	})

	t.Run("no match is an empty array", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/movies?q=zzz", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("malformed year", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/movies?year=nineties", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMovieFilters(t *testing.T) {
	s := newTestServer(t)
	repotest.Seed(t, s.db,
		repotest.Movie("Heat", "action", 1995),
		repotest.Movie("Dune", "sci-fi", 2021),
		repotest.Movie("Se7en", "drama", 1995),
	)

	w := s.do(t, http.MethodGet, "/api/movies/filters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"genres":["action","drama","sci-fi"],"years":[1995,2021]}`, w.Body.String())
}

func TestSuggestMovies(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/movies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/movies?q=%20%20", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/movies?q=nothing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":null,"title":"No movie found","genre":""}]`, w.Body.String())

	id := s.create(t, dune())
	w = s.do(t, http.MethodGet, "/movies?q=du", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":`+strconv.Itoa(id)+`,"title":"Dune","genre":"sci-fi"}]`, w.Body.String())
}

func TestSuggestMoviesStoreFailure(t *testing.T) {
	s := newTestServer(t)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := s.do(t, http.MethodGet, "/movies?q=dune", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `[{"id":null,"title":"Error fetching data","genre":""}]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/movies", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch movies"}`, w.Body.String())
}

func TestUpdateMovie(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, dune())
	path := "/movie/" + strconv.Itoa(id)

	body := dune()
	body["title"] = "Dune: Part One"
	body["rating"] = 5
	w := s.do(t, http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Movie updated successfully"}`, w.Body.String())

	movie := decode[model.Movie](t, s.do(t, http.MethodGet, "/movies/"+strconv.Itoa(id), nil))
	assert.Equal(t, "Dune: Part One", movie.Title)
	assert.Equal(t, 5.0, movie.Rating)

	body["version"] = 1
	w = s.do(t, http.MethodPut, path, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/movie/9999", dune())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Movie not found"}`, w.Body.String())

	w = s.do(t, http.MethodPut, "/movie/abc", dune())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMovieRating(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, dune())
	path := "/movies/" + strconv.Itoa(id) + "/rating"

	w := s.do(t, http.MethodPut, path, map[string]any{"rating": 3.5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"rating":3.5}`, w.Body.String())

	w = s.do(t, http.MethodPut, path, map[string]any{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path, map[string]any{"rating": "five"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	movie := decode[model.Movie](t, s.do(t, http.MethodGet, "/movies/"+strconv.Itoa(id), nil))
	assert.Equal(t, 3.5, movie.Rating)

	w = s.do(t, http.MethodPut, "/movies/9999/rating", map[string]any{"rating": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMovie(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, dune())

	w := s.do(t, http.MethodDelete, "/movie/"+strconv.Itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Movie deleted successfully"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/movies/"+strconv.Itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/movie/"+strconv.Itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCancelledRequestIsNotAStoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := newTestServerWithLogger(t, zap.New(core))
	repotest.Seed(t, s.db, repotest.Movie("Heat", "action", 1995))

	for _, path := range []string{"/api/movies", "/movies/1"} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)

		assert.Equal(t, handler.StatusClientClosedRequest, w.Code, path)
	}
	assert.Zero(t, logs.Len())

	w := s.do(t, http.MethodGet, "/movies/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
