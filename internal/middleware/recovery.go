package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/utils"
	"go.uber.org/zap"
)

// Recovery 捕获 handler 中的 panic，返回 500 并关闭连接
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.String("panic", fmt.Sprint(err)),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.Stack("stack"),
				)
				c.Header("Connection", "close")
				utils.InternalServerError(c, "")
				c.Abort()
			}
		}()
		c.Next()
	}
}
