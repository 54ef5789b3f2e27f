// Package bench serves the live status of a running test case over a unix
// socket, so another terminal can watch a run without touching the device.
package bench

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/events"
)

// DefaultSocket is where the bench listens unless told otherwise.
const DefaultSocket = "/tmp/imucal.sock"

func setupRoutes(m *Monitor, hub *events.EventHub, stop <-chan struct{}) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &handlers{monitor: m, hub: hub, stop: stop}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logrus.StandardLogger(), m))
	router.GET("/status", h.getStatus)
	router.GET("/responses", h.getResponses)
	router.GET(eventsPath, h.streamEvents)
	router.GET("/version", getVersion)

	return router
}

// Serve mirrors hub on a unix socket until ctx is done.
func Serve(ctx context.Context, socket string, hub *events.EventHub) error {
	m := NewMonitor()
	go m.Run(ctx, hub)

	srv := &http.Server{
		Handler: setupRoutes(m, hub, ctx.Done()),
	}

	// A socket left behind by a crashed run blocks Listen.
	if err := os.Remove(socket); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", socket)
	}
	l, err := net.Listen("unix", socket)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", socket)
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("bench server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down bench server")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logrus.Errorf("failed to shutdown bench server: %v", err)
	}
	return nil
}
