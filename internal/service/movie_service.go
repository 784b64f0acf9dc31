package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/utils"
	"github.com/user/moviecatalog/internal/validate"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMovieNotFound ID 不对应任何记录
	ErrMovieNotFound = errors.New("movie not found")
	// ErrVersionConflict 全量更新时携带的版本号已过期
	ErrVersionConflict = errors.New("movie was modified concurrently")
)

// SuggestionLimit 输入联想最多返回条数
const SuggestionLimit = 5

const filtersCacheKey = "movie:filters"

// MovieServiceOptions 缓存参数
type MovieServiceOptions struct {
	SuggestCacheSize int
	SuggestCacheTTL  time.Duration
	FiltersCacheTTL  time.Duration
}

// MovieService 电影服务
// 负责校验、缓存和把仓库结果转换为领域错误
type MovieService struct {
	repo         *repository.MovieRepository
	suggestCache *utils.SearchCache[[]model.MovieSuggestion]
	filtersCache *cache.Cache
	filtersTTL   time.Duration
	sf           singleflight.Group

	// generation 每次写操作后递增，写入缓存前需与加载开始时一致
	generation atomic.Uint64
	cacheMu    sync.Mutex
}

// NewMovieService 创建电影服务
func NewMovieService(repo *repository.MovieRepository, opts MovieServiceOptions) *MovieService {
	return &MovieService{
		repo:         repo,
		suggestCache: utils.NewSearchCache[[]model.MovieSuggestion](opts.SuggestCacheSize, opts.SuggestCacheTTL),
		filtersCache: cache.New(opts.FiltersCacheTTL, 2*opts.FiltersCacheTTL),
		filtersTTL:   opts.FiltersCacheTTL,
	}
}

// Create 校验并创建电影
func (s *MovieService) Create(ctx context.Context, in *model.MovieInput) (*model.Movie, error) {
	if err := validate.Movie(in); err != nil {
		return nil, err
	}

	movie := in.ToMovie()
	movie.Version = 1
	if err := s.repo.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}

	s.invalidate()
	return movie, nil
}

// List 按参数查询列表，无结果时返回空切片
func (s *MovieService) List(ctx context.Context, q model.MovieQuery) ([]model.Movie, error) {
	movies, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return movies, nil
}

// Filters 获取筛选项（带缓存）
func (s *MovieService) Filters(ctx context.Context) (*model.FilterOptions, error) {
	if cached, found := s.filtersCache.Get(filtersCacheKey); found {
		if opts, ok := cached.(*model.FilterOptions); ok {
			return opts, nil
		}
	}

	gen := s.generation.Load()
	val, err := s.load(ctx, flightKey(gen, filtersCacheKey), func(loadCtx context.Context) (any, error) {
		opts, err := s.repo.FilterOptions(loadCtx)
		if err != nil {
			return nil, err
		}
		s.storeIfCurrent(gen, func() {
			s.filtersCache.Set(filtersCacheKey, opts, s.filtersTTL)
		})
		return opts, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load filter options: %w", err)
	}
	return val.(*model.FilterOptions), nil
}

// Get 根据 ID 获取电影
func (s *MovieService) Get(ctx context.Context, id int) (*model.Movie, error) {
	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	if movie == nil {
		return nil, ErrMovieNotFound
	}
	return movie, nil
}

// Suggest 输入联想，最多 SuggestionLimit 条
// 相同关键词（忽略大小写）的并发请求只查询一次数据库
func (s *MovieService) Suggest(ctx context.Context, keyword string) ([]model.MovieSuggestion, error) {
	key := strings.ToLower(strings.TrimSpace(keyword))
	if cached, ok := s.suggestCache.Get(key); ok {
		return cached, nil
	}

	gen := s.generation.Load()
	val, err := s.load(ctx, flightKey(gen, "suggest:"+key), func(loadCtx context.Context) (any, error) {
		suggestions, err := s.repo.Suggest(loadCtx, key, SuggestionLimit)
		if err != nil {
			return nil, err
		}
		s.storeIfCurrent(gen, func() {
			s.suggestCache.Set(key, suggestions)
		})
		return suggestions, nil
	})
	if err != nil {
		return nil, fmt.Errorf("suggest movies: %w", err)
	}
	return val.([]model.MovieSuggestion), nil
}

// load 合并同一 key 的并发加载
// 共享的查询不随任何一个调用方取消；调用方取消时自己立即返回 ctx.Err()
func (s *MovieService) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (any, error) {
		return fn(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// flightKey 带上缓存代数，写操作之后的请求不会加入之前开始的加载
func flightKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + ":" + key
}

// storeIfCurrent 加载期间没有发生写操作时才写缓存
func (s *MovieService) storeIfCurrent(gen uint64, store func()) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation.Load() == gen {
		store()
	}
}

// Update 全量更新
// in.Version > 0 时启用乐观锁，版本不一致返回 ErrVersionConflict
func (s *MovieService) Update(ctx context.Context, id int, in *model.MovieInput) error {
	if err := validate.Movie(in); err != nil {
		return err
	}

	affected, err := s.repo.Update(ctx, id, in.ToMovie(), in.Version)
	if err != nil {
		return fmt.Errorf("update movie %d: %w", id, err)
	}
	if affected == 0 {
		if in.Version == 0 {
			return ErrMovieNotFound
		}
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("update movie %d: %w", id, err)
		}
		if !exists {
			return ErrMovieNotFound
		}
		return ErrVersionConflict
	}

	s.invalidate()
	return nil
}

// UpdateRating 仅更新评分，返回写入的评分
func (s *MovieService) UpdateRating(ctx context.Context, id int, in *model.RatingInput) (float64, error) {
	if err := validate.Rating(in); err != nil {
		return 0, err
	}

	affected, err := s.repo.UpdateRating(ctx, id, *in.Rating)
	if err != nil {
		return 0, fmt.Errorf("update rating of movie %d: %w", id, err)
	}
	if affected == 0 {
		return 0, ErrMovieNotFound
	}
	return *in.Rating, nil
}

// Delete 删除电影，不存在时返回 ErrMovieNotFound
func (s *MovieService) Delete(ctx context.Context, id int) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	if affected == 0 {
		return ErrMovieNotFound
	}

	s.invalidate()
	return nil
}

// PurgeExpiredSuggestions 清理过期的联想缓存
func (s *MovieService) PurgeExpiredSuggestions() int {
	return s.suggestCache.PurgeExpired()
}

// invalidate 清空联想和筛选项缓存
// 两者都不含评分字段，UpdateRating 不调用
func (s *MovieService) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation.Add(1)
	s.suggestCache.Clear()
	s.filtersCache.Delete(filtersCacheKey)
}
