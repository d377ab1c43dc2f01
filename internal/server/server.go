package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/metrics"
)

var errMissingMetrics = errors.New("metrics registry dependency required")

type HealthChecker interface {
	IsConnected(ctx context.Context) bool
}

// StatusReporter reports per-component health, keyed by component name.
type StatusReporter interface {
	Status() map[string]bool
}

type Dependencies struct {
	Metrics    *metrics.MetricsRegistry
	Database   HealthChecker
	Components StatusReporter // optional
}

// NewHTTPHandler serves the keep-alive page, a health probe and the router
// counters.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Metrics == nil {
		return nil, errMissingMetrics
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := &httpHandler{metrics: deps.Metrics, db: deps.Database, components: deps.Components}
	router.GET("/", h.handleAlive)
	router.GET("/health", h.handleHealth)
	router.GET("/metrics", h.handleMetrics)
	return router, nil
}

type httpHandler struct {
	metrics    *metrics.MetricsRegistry
	db         HealthChecker
	components StatusReporter
}

func (h *httpHandler) handleAlive(c *gin.Context) {
	c.String(http.StatusOK, "Bot is alive")
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbOK := h.db == nil || h.db.IsConnected(ctx)
	snap := h.metrics.Snapshot()

	status := http.StatusOK
	state := "ok"
	if !dbOK {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	body := gin.H{
		"status":            state,
		"database":          dbOK,
		"gateway_connected": snap.Connected,
		"uptime_seconds":    int64(snap.Uptime.Seconds()),
	}
	if h.components != nil {
		body["components"] = h.components.Status()
	}
	c.JSON(status, body)
}

func (h *httpHandler) handleMetrics(c *gin.Context) {
	snap := h.metrics.Snapshot()
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, snap)
		return
	}
	c.String(http.StatusOK, metrics.Export(snap))
}

// Run serves handler on address until ctx is cancelled.
func Run(ctx context.Context, address string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("[HTTP] Listening on %s", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http shutdown")
		}
		logging.Info("[HTTP] Server stopped")
		return nil
	}
}
