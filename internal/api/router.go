package api

import (
	"net/http"

	"tuslite/internal/config"
	tlmiddleware "tuslite/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 构建 HTTP 路由，集中注册所有对外服务的端点。
func NewRouter(cfg *config.Config, uploadHandler *UploadHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(tlmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(tlmiddleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	r.Use(tlmiddleware.Metrics())

	// 健康检查不需要鉴权
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus 指标端点
	r.Handle("/metrics", promhttp.Handler())

	if uploadHandler != nil {
		switch {
		case cfg.JWTSecret != "" || cfg.JWKSURL != "":
			r.Group(func(r chi.Router) {
				r.Use(tlmiddleware.JWTAuth(cfg.JWKSURL, cfg.JWTSecret))
				uploadHandler.RegisterRoutes(r)
			})
		case cfg.AuthEnabled:
			r.Group(func(r chi.Router) {
				r.Use(tlmiddleware.APIKeyAuth(cfg.APIKeys))
				uploadHandler.RegisterRoutes(r)
			})
		default:
			uploadHandler.RegisterRoutes(r)
		}
	}

	return r
}
