package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

type DocumentHandler struct {
	svc *service.DocumentService
	log *zap.Logger
}

func NewDocumentHandler(svc *service.DocumentService, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: log}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.List()
	writeJSON(w, http.StatusOK, "Documents retrieved", map[string]any{"documents": docs})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(chi.URLParam(r, "documentId"))
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Document retrieved", map[string]any{
		"id":      doc.ID,
		"title":   doc.Title,
		"content": doc.Content,
		"html":    doc.HTML,
	})
}
