package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/auth"
	"github.com/parisxmas/OxiDB/OxiSign/internal/config"
	"github.com/parisxmas/OxiDB/OxiSign/internal/documents"
	"github.com/parisxmas/OxiDB/OxiSign/internal/handler"
	"github.com/parisxmas/OxiDB/OxiSign/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/quiz"
	"github.com/parisxmas/OxiDB/OxiSign/internal/router"
	"github.com/parisxmas/OxiDB/OxiSign/internal/scheduler"
	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	queueSize       = 256
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the OxiSign HTTP server.

Examples:
  oxisign serve --addr :8000
  oxisign serve --store memory
  oxisign serve --config oxisign.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			log, flush, err := logging.New(logging.Options{
				Environment: cfg.Environment,
				Level:       cfg.LogLevel,
				GelfAddr:    cfg.GelfAddr,
			})
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8000)")
	_ = a.v.BindPFlag("http_addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func generator(cfg *config.Config, log *zap.Logger) quiz.Generator {
	var gen quiz.Generator = quiz.Unconfigured{}
	if cfg.OpenAIKey != "" {
		gen = quiz.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.LLMTimeout)
	}
	if cfg.QuizFallback {
		if cfg.OpenAIKey == "" {
			log.Warn("OPENAI_API_KEY not set, every quiz uses the fixed questions")
			return quiz.Static{}
		}
		return quiz.NewFallbackGenerator(gen, log)
	}
	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set and quiz fallback disabled, signatures cannot be completed")
	}
	return gen
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	catalog, err := documents.Load(cfg.DocumentsDir)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var sender notify.Sender
	if cfg.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.WebhookURL, cfg.WebhookTimeout, cfg.WebhookMaxAttempts)
	} else {
		log.Warn("EMAIL_WEBHOOK_URL not set, notifications are logged and dropped")
	}
	dispatcher := notify.NewDispatcher(sender, log, cfg.WebhookWorkers, queueSize)
	mail := notify.NewComposer(cfg.AppURL)

	admin, err := auth.NewAdmin(cfg.AdminAPIKey, handler.Deny)
	if err != nil {
		return err
	}
	if !admin.Enabled() {
		log.Warn("ADMIN_API_KEY not set, admin endpoints disabled")
	}

	docSvc := service.NewDocumentService(catalog)
	sigSvc := service.NewSignatureService(st, docSvc, generator(cfg, log), dispatcher, mail, log)
	quizSvc := service.NewQuizService(st, dispatcher, mail, log)
	dashSvc := service.NewDashboardService(st)
	adminSvc := service.NewAdminService(st, dispatcher, mail, log)

	var cleanup *scheduler.Daily
	if cfg.CleanupEnabled {
		cleanup = scheduler.NewDaily(cfg.Location(), adminSvc.NightlyCleanup(cfg.Location()), log)
		cleanup.Start()
	}
	running := func() bool { return cleanup != nil && cleanup.Running() }

	r := router.New(log, admin, router.Handlers{
		Documents:  handler.NewDocumentHandler(docSvc, log),
		Signatures: handler.NewSignatureHandler(sigSvc, log),
		Quizzes:    handler.NewQuizHandler(quizSvc, log),
		Dashboard:  handler.NewDashboardHandler(dashSvc, log),
		Admin:      handler.NewAdminHandler(adminSvc, log),
		Health: handler.NewHealthHandler(handler.HealthDeps{
			StoreDriver:       cfg.StoreDriver,
			Ping:              st.Ping,
			Notifications:     dispatcher.Stats,
			SchedulerRunning:  running,
			LLMConfigured:     cfg.OpenAIKey != "",
			WebhookConfigured: sender != nil,
		}, log),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("OxiSign server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.Int("documents", len(catalog.List())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
	if cleanup != nil {
		cleanup.Stop()
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("Notification queue not drained", zap.Error(err))
	}
	stats := dispatcher.Stats()
	log.Info("Server stopped",
		zap.Int64("delivered", stats.Delivered),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped))
	return nil
}
