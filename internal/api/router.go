package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shieldops/rollcall/internal/assigner"
	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/scoring"
	"github.com/shieldops/rollcall/internal/store"
)

func NewRouter(s store.Store, ev events.Client, calc *scoring.Calculator, est *scoring.Estimator, asg *assigner.Assigner, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	leads := NewLeadsHandler(s, ev, calc)
	assignments := NewAssignmentsHandler(s, ev, asg)
	admin := NewAdminHandler(s, est)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RecruiterIDMiddleware)

		r.Post("/leads", leads.Create)
		r.Get("/leads", leads.List)
		r.Get("/leads/prioritized", leads.Prioritized)
		r.Get("/leads/export", leads.Export)
		r.Post("/leads/score/batch", leads.BatchScore)
		r.Get("/leads/{id}", leads.Get)
		r.Post("/leads/{id}/score", leads.Score)
		r.Get("/leads/{id}/score/explain", leads.Explain)

		r.Get("/shifts/{id}/eligibility/{guard_id}", assignments.Eligibility)
		r.Post("/shifts/{id}/rank", assignments.Rank)

		r.Post("/assignments", assignments.Create)
		r.Get("/assignments/{id}", assignments.Get)
		r.Post("/assignments/{id}/respond", assignments.Respond)
		r.Post("/assignments/{id}/confirm", assignments.Confirm)
		r.Post("/assignments/{id}/cancel", assignments.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
			r.Get("/scoring/accuracy", admin.Accuracy)
			r.Get("/scoring/configs", admin.ListConfigs)
			r.Post("/scoring/configs", admin.CreateConfig)
			r.Post("/scoring/configs/{id}/activate", admin.ActivateConfig)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
