package model

import (
	"strings"
	"time"
)

// Genres 可选的影片类型（展示名），入库时统一转为小写
var Genres = []string{"Sci-Fi", "Drama", "Comedy", "Action", "Other"}

// NormalizeGenre 去除首尾空格并转小写，即存储格式
func NormalizeGenre(genre string) string {
	return strings.ToLower(strings.TrimSpace(genre))
}

// IsKnownGenre 判断类型是否在可选范围内（大小写不敏感）
func IsKnownGenre(genre string) bool {
	normalized := NormalizeGenre(genre)
	for _, g := range Genres {
		if NormalizeGenre(g) == normalized {
			return true
		}
	}
	return false
}

// Movie 电影记录
// 除记录本身的字段外，JSON 中额外带有 version（乐观锁版本号，新建为 1，
// 全量更新和评分更新都会递增），客户端全量更新时可回传
type Movie struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Genre       string    `json:"genre" gorm:"not null;index"`
	ReleaseYear int       `json:"release_year" gorm:"not null;index"`
	Notes       *string   `json:"notes"`
	Rating      float64   `json:"rating" gorm:"not null"`
	Version     int       `json:"version" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 表名
func (Movie) TableName() string {
	return "movies"
}

// MovieSuggestion 输入联想结果，仅包含 id/title/genre
// 占位记录的 ID 为 nil
type MovieSuggestion struct {
	ID    *int   `json:"id"`
	Title string `json:"title"`
	Genre string `json:"genre"`
}

const (
	NoMovieFoundTitle = "No movie found"
	FetchErrorTitle   = "Error fetching data"
)

// NoResultSuggestions 无匹配时返回的占位列表
func NoResultSuggestions() []MovieSuggestion {
	return []MovieSuggestion{{Title: NoMovieFoundTitle}}
}

// ErrorSuggestions 查询失败时返回的占位列表
func ErrorSuggestions() []MovieSuggestion {
	return []MovieSuggestion{{Title: FetchErrorTitle}}
}

// IsPlaceholder 是否为占位记录
func (s MovieSuggestion) IsPlaceholder() bool {
	return s.ID == nil
}

// FilterOptions 筛选项（去重后的类型和年份）
type FilterOptions struct {
	Genres []string `json:"genres"`
	Years  []int    `json:"years"`
}

// MovieInput 创建/全量更新请求体
// Version 为可选的乐观锁版本号，0 表示不校验
type MovieInput struct {
	Title       string  `json:"title" validate:"nonblank,not_numeric,no_negative_prefix"`
	Genre       string  `json:"genre" validate:"nonblank,genre"`
	ReleaseYear *int    `json:"release_year" validate:"required,release_year"`
	Notes       *string `json:"notes" validate:"omitempty,max=300"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	Version     int     `json:"version,omitempty" validate:"gte=0"`
}

// Normalize 规范化输入：标题去空格，类型转存储格式
func (in *MovieInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Genre = NormalizeGenre(in.Genre)
}

// ToMovie 转为待写入的记录（不含 ID/Version/CreatedAt）
func (in *MovieInput) ToMovie() *Movie {
	m := &Movie{
		Title:  in.Title,
		Genre:  in.Genre,
		Notes:  in.Notes,
		Rating: in.Rating,
	}
	if in.ReleaseYear != nil {
		m.ReleaseYear = *in.ReleaseYear
	}
	return m
}

// RatingInput 单独更新评分的请求体
type RatingInput struct {
	Rating *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}
