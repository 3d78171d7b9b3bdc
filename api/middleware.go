package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"aurapilot/internal/config"
	"aurapilot/internal/logger"
	"aurapilot/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// RequestLogger 请求日志中间件
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Metrics 请求指标中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// userIDKey 请求上下文中的用户 ID 键
const userIDKey = "user_id"

// Identify 解析请求用户身份。
// 优先解析 Bearer JWT 的 user_id 声明；没有令牌时回退到
// user_id 查询参数，两者都缺省则按用户 1 处理。
func Identify(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := userFromToken(c, cfg.JWTSecret); ok {
			c.Set(userIDKey, userID)
			c.Next()
			return
		}

		if raw := c.Query(userIDKey); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
				c.Set(userIDKey, uint(id))
				c.Next()
				return
			}
		}

		c.Set(userIDKey, uint(1))
		c.Next()
	}
}

func userFromToken(c *gin.Context, secret string) (uint, bool) {
	if secret == "" {
		return 0, false
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	switch id := claims[userIDKey].(type) {
	case float64:
		return uint(id), true
	case string:
		if n, err := strconv.ParseUint(id, 10, 32); err == nil {
			return uint(n), true
		}
	}
	return 0, false
}
