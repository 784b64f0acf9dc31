package repository

import (
	"context"
	"errors"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Create 创建电影，回填 ID 和 CreatedAt
func (r *MovieRepository) Create(ctx context.Context, movie *model.Movie) error {
	return r.db.WithContext(ctx).Create(movie).Error
}

// List 按筛选、搜索和排序参数查询电影列表
func (r *MovieRepository) List(ctx context.Context, q model.MovieQuery) ([]model.Movie, error) {
	movies := []model.Movie{}
	err := applyMovieQuery(r.db.WithContext(ctx).Model(&model.Movie{}), q).Find(&movies).Error
	return movies, err
}

// FilterOptions 获取去重后的类型和年份（升序）
func (r *MovieRepository) FilterOptions(ctx context.Context) (*model.FilterOptions, error) {
	opts := &model.FilterOptions{Genres: []string{}, Years: []int{}}

	err := r.db.WithContext(ctx).Model(&model.Movie{}).
		Distinct().
		Order("genre ASC").
		Pluck("genre", &opts.Genres).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&model.Movie{}).
		Distinct().
		Order("release_year ASC").
		Pluck("release_year", &opts.Years).Error
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// FindByID 根据 ID 查找电影，不存在时返回 nil, nil
func (r *MovieRepository) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).First(&movie, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Exists 判断电影是否存在
func (r *MovieRepository) Exists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Suggest 输入联想：标题或类型包含关键词，只返回 id/title/genre
func (r *MovieRepository) Suggest(ctx context.Context, keyword string, limit int) ([]model.MovieSuggestion, error) {
	pattern := containsPattern(keyword)
	suggestions := []model.MovieSuggestion{}
	err := r.db.WithContext(ctx).Model(&model.Movie{}).
		Select("id", "title", "genre").
		Where(searchClause, pattern, pattern).
		Order("id ASC").
		Limit(limit).
		Find(&suggestions).Error
	return suggestions, err
}

// Update 全量更新，expectedVersion > 0 时只在版本一致时更新
// 返回受影响行数，0 表示不存在或版本不一致
func (r *MovieRepository) Update(ctx context.Context, id int, movie *model.Movie, expectedVersion int) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id)
	if expectedVersion > 0 {
		tx = tx.Where("version = ?", expectedVersion)
	}

	result := tx.Updates(map[string]any{
		"title":        movie.Title,
		"genre":        movie.Genre,
		"release_year": movie.ReleaseYear,
		"notes":        movie.Notes,
		"rating":       movie.Rating,
		"version":      gorm.Expr("version + 1"),
	})
	return result.RowsAffected, result.Error
}

// UpdateRating 仅更新评分
func (r *MovieRepository) UpdateRating(ctx context.Context, id int, rating float64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Movie{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":  rating,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Delete 物理删除电影
func (r *MovieRepository) Delete(ctx context.Context, id int) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&model.Movie{}, id)
	return result.RowsAffected, result.Error
}
