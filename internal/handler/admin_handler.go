package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/auth"
	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
	log *zap.Logger
}

func NewAdminHandler(svc *service.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

// audit records which admin credential performed a purge.
func (h *AdminHandler) audit(r *http.Request, action string, res *service.ClearResult) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.Int("signatures_cleared", res.SignaturesCleared),
		zap.Int("quizzes_cleared", res.QuizzesCleared),
		zap.String("remote_addr", r.RemoteAddr),
	}
	if claims := auth.GetClaims(r.Context()); claims != nil {
		fields = append(fields, zap.String("auth", "token"), zap.String("subject", claims.Subject))
		if claims.IssuedAt != nil {
			fields = append(fields, zap.Time("token_issued_at", claims.IssuedAt.Time))
		}
	} else {
		fields = append(fields, zap.String("auth", "key"))
	}
	h.log.Info("Admin purge", fields...)
}

func (h *AdminHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClearAll(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	h.audit(r, "clear_all", res)
	writeJSON(w, http.StatusOK, "All signature data cleared", res)
}

func (h *AdminHandler) ClearOld(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", 30)
	if !ok {
		return
	}
	res, err := h.svc.ClearOlderThan(r.Context(), days)
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	h.audit(r, "clear_old", res)
	writeJSON(w, http.StatusOK, "Old signature data cleared", res)
}

func (h *AdminHandler) DeleteSignature(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteSignature(r.Context(), chi.URLParam(r, "trackingId"))
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	h.audit(r, "delete_signature", res)
	writeJSON(w, http.StatusOK, "Signature deleted", res)
}
