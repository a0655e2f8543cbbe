package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/auth"
	"github.com/parisxmas/OxiDB/OxiSign/internal/handler"
	mw "github.com/parisxmas/OxiDB/OxiSign/internal/middleware"
)

type Handlers struct {
	Documents  *handler.DocumentHandler
	Signatures *handler.SignatureHandler
	Quizzes    *handler.QuizHandler
	Dashboard  *handler.DashboardHandler
	Admin      *handler.AdminHandler
	Health     *handler.HealthHandler
	Pages      handler.Pages
}

func New(log *zap.Logger, admin *auth.Admin, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log))
	r.Use(mw.CORS)

	r.Get("/", h.Pages.Index)
	r.Get("/sign/{trackingId}", h.Pages.Sign)
	r.Get("/quiz/{quizId}", h.Pages.Quiz)
	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", h.Documents.List)
		r.Get("/documents/{documentId}", h.Documents.Get)

		r.Post("/send-document", h.Signatures.SendDocument)
		r.Get("/signature/{trackingId}", h.Signatures.Get)
		r.Post("/submit-signature/{trackingId}", h.Signatures.Submit)

		r.Get("/quiz/{quizId}", h.Quizzes.Get)
		r.Post("/submit-quiz/{quizId}", h.Quizzes.Submit)

		r.Get("/dashboard", h.Dashboard.Dashboard)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(admin.Middleware)
			r.Delete("/admin/clear-all-data", h.Admin.ClearAll)
			r.Delete("/admin/clear-old-data", h.Admin.ClearOld)
			r.Delete("/admin/signatures/{trackingId}", h.Admin.DeleteSignature)
		})
	})

	return r
}
