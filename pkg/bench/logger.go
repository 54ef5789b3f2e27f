package bench

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/nus"
)

const eventsPath = "/events"

// requestLogger tags every request with the case and device the bench is
// watching. An event stream lives as long as its client, so it is logged
// when it opens and when it closes instead of as one request line.
func requestLogger(logger logrus.FieldLogger, m *Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		st := m.Status()
		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   path,
			"case":   st.Case,
			"device": nus.ShortAddress(st.Address),
		})

		start := time.Now()
		if path == eventsPath {
			entry.Debug("event stream opened")
			c.Next()
			entry.WithField("duration", time.Since(start).Round(time.Millisecond).String()).
				Debug("event stream closed")
			return
		}

		c.Next()
		latency := time.Since(start).Milliseconds()
		status := c.Writer.Status()
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		entry = entry.WithFields(logrus.Fields{
			"statusCode": status,
			"latencyMs":  latency,
			"dataLength": size,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}
		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, status, latency)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}
