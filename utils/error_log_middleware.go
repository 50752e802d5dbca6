package utils

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorLogWriter struct {
	gin.ResponseWriter
	gc  *gin.Context
	log *zap.SugaredLogger
}

func (w errorLogWriter) Write(b []byte) (int, error) {
	status := w.gc.Writer.Status()
	if status >= 400 {
		w.log.Debugw("error response", "status", status, "path", w.gc.Request.URL.Path, "body", string(b))
	}
	return w.ResponseWriter.Write(b)
}

// ErrorLogMiddleware logs 4xx/5xx bodies, debug only. Doesn't work with GZIP
func ErrorLogMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		blw := &errorLogWriter{gc: c, ResponseWriter: c.Writer, log: log}
		c.Writer = blw
		c.Next()
	}
}
