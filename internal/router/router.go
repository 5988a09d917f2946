package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"learning-diary/internal/handlers"
	"learning-diary/internal/logger"
	"learning-diary/internal/middleware"
	"learning-diary/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	dailyLogHandler *handlers.DailyLogHandler,
	dispatchHandler *handlers.DispatchHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(zap.NewStdLog(logger.L.Desugar())))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Sign-in rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// AI feature limiter (30 req/min per IP)
	aiLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/reference", handlers.Reference)

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/anonymous", authHandler.Anonymous)
			r.Post("/custom-token", authHandler.CustomToken)
		})

		// ──── Daily Log Routes ────
		r.Route("/daily-logs/{date}", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", dailyLogHandler.Get)
			r.Patch("/", dailyLogHandler.Merge)

			r.With(aiLimiter.Middleware).Post("/features/{feature}", dailyLogHandler.RunFeature)
		})

		// ──── Diary Dispatch ────
		r.Route("/diary", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/dispatch", dispatchHandler.Dispatch)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
