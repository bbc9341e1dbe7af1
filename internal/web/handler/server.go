package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/web/websocket"
	"github.com/sirupsen/logrus"
)

// Panel is a running status panel server
type Panel struct {
	*Handler
	Addr string
	done chan struct{}
}

// Wait blocks until the server has shut down after its context ended
func (p *Panel) Wait() {
	<-p.done
}

// StartPanel serves the status panel until ctx is done. It returns nil when
// the panel is disabled (port 0).
func StartPanel(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Panel, error) {
	if cfg.WebPanel.Port <= 0 {
		return nil, nil
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := net.JoinHostPort(cfg.WebPanel.Host, strconv.Itoa(cfg.WebPanel.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	h := NewHandler(log, hub)
	r := gin.New()
	r.Use(gin.Recovery())
	h.RegisterRoutes(r)

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	panel := &Panel{Handler: h, Addr: ln.Addr().String(), done: make(chan struct{})}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("component", "web").WithError(err).Error("Status panel stopped")
		}
	}()

	go func() {
		defer close(panel.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithField("component", "web").WithError(err).Warn("Status panel shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"component": "web",
		"addr":      panel.Addr,
	}).Info("Status panel listening")

	return panel, nil
}
