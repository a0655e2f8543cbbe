package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

type DashboardHandler struct {
	svc *service.DashboardService
	log *zap.Logger
}

func NewDashboardHandler(svc *service.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", service.DefaultDashboardLimit)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Dashboard retrieved", page)
}

// intParam reads an optional integer query parameter, answering 400 itself
// when the value does not parse.
func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}
