package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

type QuizHandler struct {
	svc *service.QuizService
	log *zap.Logger
}

func NewQuizHandler(svc *service.QuizService, log *zap.Logger) *QuizHandler {
	return &QuizHandler{svc: svc, log: log}
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetQuiz(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Quiz retrieved", view)
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.SubmitQuiz(r.Context(), chi.URLParam(r, "quizId"), req.Answers)
	if err != nil {
		writeServiceError(w, h.log, r, err)
		return
	}
	msg := "Quiz failed, please review the document and retry"
	if res.Passed {
		msg = "Quiz passed, signature completed"
	}
	writeJSON(w, http.StatusOK, msg, res)
}
