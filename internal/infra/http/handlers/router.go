package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/infra/http/middleware"
)

type RouterDeps struct {
	Progress       *ProgressHandler
	Lead           *LeadHandler
	Email          *EmailHandler
	Webhook        *WebhookHandler
	Batch          *BatchHandler
	Download       *DownloadHandler
	Health         *HealthHandler
	AllowedOrigins []string
	SystemToken    string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.SystemTokenHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", d.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/webhook", d.Webhook.Handle)
		r.Post("/email/lead-magnet", d.Lead.CaptureLead)
		r.Post("/email/nurture-sequence", d.Email.Nurture)
		r.Post("/email/unsubscribe", d.Email.Unsubscribe)
		r.Get("/downloads/secure/{filename}", d.Download.Serve)

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/progress/{email}", d.Progress.Get)
			r.Post("/progress/{email}", d.Progress.Update)
			r.Delete("/progress/{email}", d.Progress.Reset)
			r.Post("/complete-step/{email}/{step}", d.Progress.CompleteStep)
			r.Get("/analytics", d.Progress.Funnel)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.SystemToken(d.SystemToken))
			r.Post("/events/batch", d.Batch.Handle)
			r.Post("/email/daily-progress", d.Email.DailyProgress)
			r.Post("/email/send-daily-batch", d.Email.DailyBatch)
		})
	})

	return r
}
