package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type HealthDeps struct {
	StoreDriver       string
	Ping              func(ctx context.Context) error
	Notifications     func() notify.Stats
	SchedulerRunning  func() bool
	LLMConfigured     bool
	WebhookConfigured bool
}

type HealthHandler struct {
	deps HealthDeps
	log  *zap.Logger
}

func NewHealthHandler(deps HealthDeps, log *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, log: log}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeOK := true
	if err := h.deps.Ping(ctx); err != nil {
		storeOK = false
		h.log.Warn("Store health check failed", zap.String("store", h.deps.StoreDriver), zap.Error(err))
	}
	running := false
	if h.deps.SchedulerRunning != nil {
		running = h.deps.SchedulerRunning()
	}

	status := http.StatusOK
	msg := "Service is healthy"
	if !storeOK {
		status = http.StatusServiceUnavailable
		msg = "Store unavailable"
	}
	body := map[string]any{
		"service":            "oxisign",
		"version":            Version,
		"llm_configured":     h.deps.LLMConfigured,
		"webhook_configured": h.deps.WebhookConfigured,
		"store":              h.deps.StoreDriver,
		"store_ok":           storeOK,
		"scheduler_running":  running,
		"notifications":      h.deps.Notifications(),
	}
	writeJSON(w, status, msg, body)
}
