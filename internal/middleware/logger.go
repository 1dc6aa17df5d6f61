package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls what the request logger records
type LoggerConfig struct {
	LogRequestBody bool
	MaxBodySize    int64 // bytes; larger bodies are not captured
	SkipPaths      []string
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		LogRequestBody: true,
		MaxBodySize:    2048,
		SkipPaths:      []string{"/health", "/metrics"},
	}
}

func Logger(log *zap.Logger) gin.HandlerFunc {
	return LoggerWithConfig(log, DefaultLoggerConfig())
}

func LoggerWithConfig(log *zap.Logger, config LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()

		// multipart bodies carry images; never buffer those
		var requestBody string
		contentType := c.GetHeader("Content-Type")
		if config.LogRequestBody && strings.Contains(contentType, "application/json") &&
			c.Request.Body != nil && c.Request.ContentLength > 0 && c.Request.ContentLength <= config.MaxBodySize {
			bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, config.MaxBodySize))
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				requestBody = sanitizeBody(bodyBytes)
			}
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("requestId", c.GetString("requestID")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("size", c.Writer.Size()),
			zap.String("ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if uid := c.GetString("userID"); uid != "" {
			fields = append(fields, zap.String("userId", uid))
		}
		if requestBody != "" {
			fields = append(fields, zap.String("body", requestBody))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		}
		if ce := log.Check(level, "request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// Recovery turns a panic into a logged 500
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("requestId", c.GetString("requestID")),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"statusCode": http.StatusInternalServerError,
			"message":    "Internal server error",
			"code":       "INTERNAL_ERROR",
		})
	})
}

func sanitizeBody(body []byte) string {
	var data interface{}
	if json.Unmarshal(body, &data) != nil {
		return truncateString(string(body), 200)
	}
	out, err := json.Marshal(hideSensitiveFields(data))
	if err != nil {
		return ""
	}
	return truncateString(string(out), 1024)
}

func hideSensitiveFields(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitiveField(strings.ToLower(key)) {
				result[key] = "********"
			} else {
				result[key] = hideSensitiveFields(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = hideSensitiveFields(item)
		}
		return result
	default:
		return v
	}
}

func isSensitiveField(field string) bool {
	for _, s := range []string{"password", "token", "secret", "sid"} {
		if strings.Contains(field, s) {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
