// Package client Record API 的 Go 客户端和查询组合器
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
	"github.com/user/moviecatalog/internal/validate"
)

// ErrNetwork 无法连接服务端，调用方需自行重试
var ErrNetwork = errors.New("network error")

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound 是否 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client Record API 客户端
type Client struct {
	baseURL string
	timeout time.Duration
	http    *utils.HTTPClient
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 单次请求的整体超时，默认不设置
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New 创建客户端，baseURL 形如 http://localhost:5000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	c.http = utils.NewHTTPClient(c.timeout, "moviecatalog-client/1.0")
	return c
}

// CreateMovie 本地校验通过后创建，返回新 ID
func (c *Client) CreateMovie(ctx context.Context, in *model.MovieInput) (int, error) {
	if err := validate.Movie(in); err != nil {
		return 0, err
	}

	var resp struct {
		MovieID int `json:"movieId"`
	}
	if err := c.do(ctx, http.MethodPost, "/movies", in, &resp); err != nil {
		return 0, err
	}
	return resp.MovieID, nil
}

// ListMovies 按参数查询，未设置的参数不出现在 URL 中
func (c *Client) ListMovies(ctx context.Context, q model.MovieQuery) ([]model.Movie, error) {
	path := "/api/movies"
	if values := q.Values(); len(values) > 0 {
		path += "?" + values.Encode()
	}

	var movies []model.Movie
	if err := c.do(ctx, http.MethodGet, path, nil, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Filters 获取筛选项
func (c *Client) Filters(ctx context.Context) (*model.FilterOptions, error) {
	var opts model.FilterOptions
	if err := c.do(ctx, http.MethodGet, "/api/movies/filters", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// GetMovie 根据 ID 获取
func (c *Client) GetMovie(ctx context.Context, id int) (*model.Movie, error) {
	var movie model.Movie
	if err := c.do(ctx, http.MethodGet, "/movies/"+strconv.Itoa(id), nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Suggest 输入联想，无结果时服务端返回单条占位记录
func (c *Client) Suggest(ctx context.Context, keyword string) ([]model.MovieSuggestion, error) {
	path := "/movies?" + url.Values{"q": {keyword}}.Encode()

	var suggestions []model.MovieSuggestion
	if err := c.do(ctx, http.MethodGet, path, nil, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// UpdateMovie 本地校验通过后全量更新
func (c *Client) UpdateMovie(ctx context.Context, id int, in *model.MovieInput) error {
	if err := validate.Movie(in); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/movie/"+strconv.Itoa(id), in, nil)
}

// UpdateRating 本地校验通过后更新评分，返回服务端确认的评分
func (c *Client) UpdateRating(ctx context.Context, id int, rating float64) (float64, error) {
	in := &model.RatingInput{Rating: &rating}
	if err := validate.Rating(in); err != nil {
		return 0, err
	}

	var resp struct {
		Success bool    `json:"success"`
		Rating  float64 `json:"rating"`
	}
	if err := c.do(ctx, http.MethodPut, "/movies/"+strconv.Itoa(id)+"/rating", in, &resp); err != nil {
		return 0, err
	}
	return resp.Rating, nil
}

// DeleteMovie 删除
func (c *Client) DeleteMovie(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/movie/"+strconv.Itoa(id), nil, nil)
}

// do 发送请求并解码响应，out 为 nil 时忽略响应体
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	status, body, err := c.http.DoJSON(ctx, method, c.baseURL+path, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}

	if status < 200 || status >= 300 {
		return decodeError(status, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError 解析错误响应，响应体不是 {"error": ...} 时使用状态文本
func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var resp utils.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		apiErr.Message = resp.Error
		apiErr.Fields = resp.Fields
	}
	return apiErr
}
