package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MovieSort 列表排序方式
type MovieSort string

const (
	SortDefault   MovieSort = "" // 按插入顺序
	SortTitleAsc  MovieSort = "titleAsc"
	SortTitleDesc MovieSort = "titleDesc"
	SortYearAsc   MovieSort = "yearAsc"
	SortYearDesc  MovieSort = "yearDesc"
)

// Valid 是否为已知的排序方式
func (s MovieSort) Valid() bool {
	switch s {
	case SortDefault, SortTitleAsc, SortTitleDesc, SortYearAsc, SortYearDesc:
		return true
	}
	return false
}

// ErrInvalidYear 年份参数不是整数
var ErrInvalidYear = errors.New("year must be an integer")

// MovieQuery 列表查询参数，前后端共用同一套约定
// 零值字段表示不参与筛选
type MovieQuery struct {
	Q     string
	Genre string
	Year  int
	Sort  MovieSort
}

// ParseMovieQuery 从 URL 查询参数解析
// 未知的 sort 视为未指定
func ParseMovieQuery(values url.Values) (MovieQuery, error) {
	q := MovieQuery{
		Q:     strings.TrimSpace(values.Get("q")),
		Genre: NormalizeGenre(values.Get("genre")),
		Sort:  MovieSort(values.Get("sort")),
	}
	if !q.Sort.Valid() {
		q.Sort = SortDefault
	}

	if raw := strings.TrimSpace(values.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return MovieQuery{}, fmt.Errorf("%w: %q", ErrInvalidYear, raw)
		}
		q.Year = year
	}

	return q, nil
}

// Values 编码为 URL 查询参数，只包含非空字段
func (q MovieQuery) Values() url.Values {
	values := url.Values{}
	if q.Q != "" {
		values.Set("q", q.Q)
	}
	if q.Genre != "" {
		values.Set("genre", q.Genre)
	}
	if q.Year != 0 {
		values.Set("year", strconv.Itoa(q.Year))
	}
	if q.Sort != SortDefault {
		values.Set("sort", string(q.Sort))
	}
	return values
}
