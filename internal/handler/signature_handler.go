package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

type SignatureHandler struct {
	svc *service.SignatureService
	log *zap.Logger
}

func NewSignatureHandler(svc *service.SignatureService, log *zap.Logger) *SignatureHandler {
	return &SignatureHandler{svc: svc, log: log}
}

func (h *SignatureHandler) SendDocument(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.SendDocument(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Document sent for signature", res)
}

func (h *SignatureHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetSignature(r.Context(), chi.URLParam(r, "trackingId"))
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Signature retrieved", view)
}

func (h *SignatureHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SignRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.SubmitSignature(r.Context(), chi.URLParam(r, "trackingId"), req)
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Signature recorded, quiz issued", res)
}
