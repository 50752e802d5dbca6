// Package logging holds the process-wide zap logger and the gin request logger.
package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// L is usable before Init is called (no-op logger), e.g. in tests.
var L = zap.NewNop().Sugar()

func Init(debug bool) {
	var (
		z   *zap.Logger
		err error
	)
	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	L = z.Sugar()
}

func Sync() {
	_ = L.Sync()
}

// Middleware replaces gin's default logger. Every request gets an id that is
// echoed back in the response headers.
func Middleware(c *gin.Context) {
	start := time.Now()
	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(RequestIDHeader, requestID)

	c.Next()

	status := c.Writer.Status()
	fields := []any{
		"request_id", requestID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration", time.Since(start),
		"ip", c.ClientIP(),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, "errors", c.Errors.String())
	}
	if status >= 500 {
		L.Errorw("request", fields...)
	} else {
		L.Infow("request", fields...)
	}
}
