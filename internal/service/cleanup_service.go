package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupService 定时清理过期缓存
type CleanupService struct {
	movies   *MovieService
	interval time.Duration
	logger   *zap.Logger
}

// NewCleanupService 创建清理服务，interval 不大于 0 时按每分钟执行
func NewCleanupService(movies *MovieService, interval time.Duration, logger *zap.Logger) *CleanupService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CleanupService{movies: movies, interval: interval, logger: logger}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCleanup()
			}
		}
	}()
}

func (s *CleanupService) runCleanup() {
	purged := s.movies.PurgeExpiredSuggestions()
	if purged > 0 {
		s.logger.Info("[CleanupService] 已清理过期联想缓存", zap.Int("purged", purged))
	}
}
