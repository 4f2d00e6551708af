package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kweaver-ai/ai-store/internal/metrics"
)

type RouterOptions struct {
	APIPrefix      string
	APIToken       string
	MaxUploadBytes int64
	Metrics        metrics.RequestMetrics
	MetricsHandler http.Handler
}

func NewRouter(appH *ApplicationHandler, opts RouterOptions) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = maxRequestBodySize
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/dip-hub/v1"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(opts.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.Route(opts.APIPrefix, func(r chi.Router) {
		r.Use(authMiddleware(opts.APIToken))
		r.Route("/applications", func(r chi.Router) {
			// 安装包体积远大于普通请求，单独限制
			r.With(bodySizeLimitMiddleware(opts.MaxUploadBytes)).Post("/", appH.Install)

			r.Group(func(r chi.Router) {
				r.Use(bodySizeLimitMiddleware(maxRequestBodySize))
				r.Get("/", appH.List)
				r.Get("/basic-info", appH.BasicInfo)
				r.Get("/ontologies", appH.Ontologies)
				r.Get("/agents", appH.Agents)
				r.Put("/config", appH.Configure)
				r.Get("/pinned", appH.ListPinned)
				r.Put("/{id}/pin", appH.Pin)
				r.Delete("/{id}", appH.Uninstall)
			})
		})
	})

	return r
}
