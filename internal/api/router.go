package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

// RouterConfig carries the router's collaborators and switches.
type RouterConfig struct {
	Handler        *Handler
	Codec          *token.Codec
	Metrics        *RequestMetrics
	MetricsEnabled bool
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET /                       - Liveness
//   - GET /v1                     - Liveness
//   - GET /metrics                - Prometheus metrics (when enabled)
//   - GET /v1/getLoginInfo        - Host discovery, opens a handshake
//   - GET /v1/getLoginCaptcha     - Captcha relay (handshake credential)
//   - POST /v1/login              - Login (handshake credential)
//   - GET /v1/getUserInfoShort    - Cached profile (session credential)
//   - GET /v1/getUserInfo         - Full profile (session credential)
//   - GET /v1/getAvailableScore   - Exam list (session credential)
//   - GET /v1/getScoreInfo        - One exam's scores (session credential)
//   - GET /v1/getRewAndPun        - Conduct records (session credential)
//   - GET /v1/getLack             - Attendance records (session credential)
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// Clients are browser apps on other origins, so every response carries
	// permissive CORS headers and preflights are answered here.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if cfg.MetricsEnabled {
		r.Use(cfg.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, msgNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, msgBadRequest, "Method")
	})

	r.Get("/", cfg.Handler.Alive)

	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", cfg.Handler.Alive)
		r.Get("/getLoginInfo", cfg.Handler.GetLoginInfo)

		r.Group(func(r chi.Router) {
			r.Use(RequireHandshake(cfg.Codec))
			r.Get("/getLoginCaptcha", cfg.Handler.GetLoginCaptcha)
			r.Post("/login", cfg.Handler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(cfg.Codec))
			r.Get("/getUserInfoShort", cfg.Handler.GetUserInfoShort)
			r.Get("/getUserInfo", cfg.Handler.GetUserInfo)
			r.Get("/getAvailableScore", cfg.Handler.GetAvailableScore)
			r.Get("/getScoreInfo", cfg.Handler.GetScoreInfo)
			r.Get("/getRewAndPun", cfg.Handler.GetRewAndPun)
			r.Get("/getLack", cfg.Handler.GetLack)
		})
	})

	return r
}

// requestLogger logs request start and completion through the shared
// logger instead of chi's default text logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			logger.KeyRequestID, requestID,
			"method", r.Method,
			logger.API(r.URL.Path),
			logger.KeyRemoteAddr, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			logger.KeyRequestID, requestID,
			"method", r.Method,
			logger.API(r.URL.Path),
			logger.Status(ww.Status()),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(float64(time.Since(start).Nanoseconds())/1e6),
		)
	})
}
