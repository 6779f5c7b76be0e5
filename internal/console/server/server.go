package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/console/handler"
)

// ConsoleServer — HTTP API для рендереров дашборда и оператора (twctl).
type ConsoleServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	// Обработчики
	dashHandler   *handler.DashboardHandler // /api/v1/dashboard, /alerts, /refresh, /local-stats
	systemHandler *handler.SystemHandler    // /api/v1/system
	actionHandler *handler.ActionHandler    // /api/v1/actions/*
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	dashH *handler.DashboardHandler,
	systemH *handler.SystemHandler,
	actionH *handler.ActionHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		gatherer:      gatherer,
		dashHandler:   dashH,
		systemHandler: systemH,
		actionHandler: actionH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. Инфраструктура ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// --- 3. API дашборда ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.dashHandler.GetView)
		r.Get("/alerts", s.dashHandler.ListAlerts)
		r.Post("/refresh", s.dashHandler.Refresh)
		r.Put("/local-stats", s.dashHandler.PutLocalStats)

		r.Get("/system", s.systemHandler.Get)

		// Действия оператора над сервисом детекции
		r.Route("/actions", func(r chi.Router) {
			r.Post("/train", s.actionHandler.Train)
			r.Post("/test", s.actionHandler.Test)
			r.Post("/generate", s.actionHandler.Generate)
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
