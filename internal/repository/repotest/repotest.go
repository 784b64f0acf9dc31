// Package repotest 测试用的内存数据库
package repotest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB 创建独立的内存 SQLite 数据库并建表
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只存在于单个连接上
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Movie{}))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// Seed 写入测试数据
func Seed(t testing.TB, db *gorm.DB, movies ...*model.Movie) {
	t.Helper()
	for _, m := range movies {
		if m.Version == 0 {
			m.Version = 1
		}
		require.NoError(t, db.Create(m).Error)
	}
}

// Movie 构造测试用电影
func Movie(title, genre string, year int) *model.Movie {
	return &model.Movie{Title: title, Genre: genre, ReleaseYear: year}
}
