package client

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/moviecatalog/internal/model"
)

// DefaultDebounce 输入联想的默认防抖间隔
const DefaultDebounce = 250 * time.Millisecond

// SuggestionHandler 联想结果回调，在锁外调用
type SuggestionHandler func(suggestions []model.MovieSuggestion, err error)

// ComposerOption 组合器选项
type ComposerOption func(*Composer)

// WithDebounce 设置防抖间隔，0 表示每次输入立即请求
func WithDebounce(d time.Duration) ComposerOption {
	return func(c *Composer) { c.debounce = d }
}

// WithSuggestionHandler 注册联想结果回调
func WithSuggestionHandler(fn SuggestionHandler) ComposerOption {
	return func(c *Composer) { c.onSuggest = fn }
}

// Composer 把筛选、排序和搜索框状态转换为 Record API 请求
//
// 列表和联想各自维护递增序号，响应到达时序号已过期则丢弃，
// 保证最后一次操作的结果生效。
type Composer struct {
	client    *Client
	debounce  time.Duration
	onSuggest SuggestionHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	genre    string
	year     int
	language string
	sort     model.MovieSort

	movies      []model.Movie
	filters     *model.FilterOptions
	suggestions []model.MovieSuggestion

	listSeq       uint64
	listCancel    context.CancelFunc
	suggestSeq    uint64
	suggestTimer  *time.Timer
	suggestCancel context.CancelFunc
}

// NewComposer 创建组合器
func NewComposer(client *Client, opts ...ComposerOption) *Composer {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Composer{
		client:   client,
		debounce: DefaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query 当前列表参数
func (c *Composer) Query() model.MovieQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Composer) queryLocked() model.MovieQuery {
	return model.MovieQuery{
		Genre: c.genre,
		Year:  c.year,
		Sort:  c.sort,
	}
}

// SetGenre 切换类型并刷新列表，空字符串表示不限
func (c *Composer) SetGenre(ctx context.Context, genre string) error {
	c.mu.Lock()
	c.genre = model.NormalizeGenre(genre)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetYear 切换年份并刷新列表，0 表示不限
func (c *Composer) SetYear(ctx context.Context, year int) error {
	c.mu.Lock()
	c.year = year
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetSort 切换排序并刷新列表
func (c *Composer) SetSort(ctx context.Context, s model.MovieSort) error {
	if !s.Valid() {
		s = model.SortDefault
	}
	c.mu.Lock()
	c.sort = s
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetLanguage 只保存选择，不参与任何查询
func (c *Composer) SetLanguage(language string) {
	c.mu.Lock()
	c.language = language
	c.mu.Unlock()
}

// Language 当前语言选择
func (c *Composer) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Refresh 按当前参数重新查询列表
// 新的刷新会取消尚未返回的旧请求，过期响应被丢弃
func (c *Composer) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.listCancel != nil {
		c.listCancel()
	}
	c.listSeq++
	seq := c.listSeq
	q := c.queryLocked()
	reqCtx, cancel := mergeCancel(ctx, c.ctx)
	c.listCancel = cancel
	c.mu.Unlock()
	defer cancel()

	movies, err := c.client.ListMovies(reqCtx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.listSeq {
		return nil
	}
	c.listCancel = nil
	if err != nil {
		return err
	}
	c.movies = movies
	return nil
}

// Movies 当前显示的列表
func (c *Composer) Movies() []model.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Movie(nil), c.movies...)
}

// LoadFilters 获取筛选项，类型和年份均升序
func (c *Composer) LoadFilters(ctx context.Context) (*model.FilterOptions, error) {
	opts, err := c.client.Filters(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(opts.Genres)
	sort.Ints(opts.Years)

	c.mu.Lock()
	c.filters = opts
	c.mu.Unlock()
	return opts, nil
}

// Filters 最近一次获取的筛选项
func (c *Composer) Filters() *model.FilterOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Type 处理搜索框输入
// 输入去空格后为空时立即清空联想，不发请求；否则在防抖间隔后请求，
// 期间的新输入会取代之前的输入并取消其在途请求。
func (c *Composer) Type(input string) {
	keyword := strings.TrimSpace(input)

	c.mu.Lock()
	c.suggestSeq++
	seq := c.suggestSeq
	c.stopSuggestLocked()

	if keyword == "" {
		c.suggestions = nil
		c.mu.Unlock()
		c.notify(nil, nil)
		return
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}

	c.suggestTimer = time.AfterFunc(c.debounce, func() {
		c.runSuggest(seq, keyword)
	})
	c.mu.Unlock()
}

// stopSuggestLocked 停止待触发的防抖定时器并取消在途请求，调用方持有锁
func (c *Composer) stopSuggestLocked() {
	if c.suggestTimer != nil {
		c.suggestTimer.Stop()
		c.suggestTimer = nil
	}
	if c.suggestCancel != nil {
		c.suggestCancel()
		c.suggestCancel = nil
	}
}

func (c *Composer) runSuggest(seq uint64, keyword string) {
	c.mu.Lock()
	if seq != c.suggestSeq || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.suggestCancel = cancel
	c.mu.Unlock()
	defer cancel()

	suggestions, err := c.client.Suggest(ctx, keyword)

	c.mu.Lock()
	if seq != c.suggestSeq {
		c.mu.Unlock()
		return
	}
	c.suggestCancel = nil
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		suggestions = model.ErrorSuggestions()
	}
	c.suggestions = suggestions
	c.mu.Unlock()

	c.notify(suggestions, err)
}

func (c *Composer) notify(suggestions []model.MovieSuggestion, err error) {
	if c.onSuggest != nil {
		c.onSuggest(suggestions, err)
	}
}

// Suggestions 当前联想结果
func (c *Composer) Suggestions() []model.MovieSuggestion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.MovieSuggestion(nil), c.suggestions...)
}

// AddMovie 创建后刷新列表
func (c *Composer) AddMovie(ctx context.Context, in *model.MovieInput) (int, error) {
	id, err := c.client.CreateMovie(ctx, in)
	if err != nil {
		return 0, err
	}
	return id, c.Refresh(ctx)
}

// EditMovie 全量更新后刷新列表
func (c *Composer) EditMovie(ctx context.Context, id int, in *model.MovieInput) error {
	if err := c.client.UpdateMovie(ctx, id, in); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RateMovie 更新评分后刷新列表
func (c *Composer) RateMovie(ctx context.Context, id int, rating float64) error {
	if _, err := c.client.UpdateRating(ctx, id, rating); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RemoveMovie 删除后刷新列表
func (c *Composer) RemoveMovie(ctx context.Context, id int) error {
	if err := c.client.DeleteMovie(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Close 停止防抖定时器并取消所有在途请求
func (c *Composer) Close() {
	c.mu.Lock()
	c.stopSuggestLocked()
	c.suggestSeq++
	c.mu.Unlock()
	c.cancel()
}

// mergeCancel 返回在 parent 或 other 任一取消时都会取消的 context
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
