package bench

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/version"
)

type handlers struct {
	monitor *Monitor
	hub     *events.EventHub
	// stop is closed when the server shuts down, ending event streams.
	stop <-chan struct{}
}

func (h *handlers) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.monitor.Status())
}

func (h *handlers) getResponses(c *gin.Context) {
	n := 0
	if s := c.Query("last"); s != "" {
		var err error
		n, err = strconv.Atoi(s)
		if err != nil || n < 0 {
			msg := "last must be a non-negative integer, got " + strconv.Quote(s)
			c.IndentedJSON(http.StatusBadRequest, msg)
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}
	c.IndentedJSON(http.StatusOK, h.monitor.Responses(n))
}

// streamEvents relays hub events as server-sent events until the client
// goes away.
func (h *handlers) streamEvents(c *gin.Context) {
	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	logrus.Debug("event stream client connected")
	for {
		select {
		case <-c.Request.Context().Done():
			logrus.Debug("event stream client disconnected")
			return
		case <-h.stop:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, string(ev.Data))
			c.Writer.Flush()
		}
	}
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
