package rest

import (
	"net/http"
	"strings"

	"lessonplayer/internal/service"
	"lessonplayer/internal/transport/rest/handler"
	"lessonplayer/internal/transport/rest/middleware"
	"lessonplayer/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CORSConfig lists what browsers may send
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Container holds all dependencies for the router
type Container struct {
	AuthService      *service.AuthService
	LessonService    *service.LessonService
	AnalyticsService *service.AnalyticsService
	HistoryService   *service.HistoryService
	WSHub            *ws.Hub
	WSOrigins        []string
	CORS             CORSConfig
	Metrics          http.Handler
	Logger           *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	slideHandler := handler.NewSlideHandler(c.LessonService)
	completionHandler := handler.NewCompletionHandler(c.LessonService)
	conceptHandler := handler.NewConceptHandler(c.AnalyticsService)
	historyHandler := handler.NewHistoryHandler(c.HistoryService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))
	r.Use(middleware.RequestLogger(log))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.WSOrigins, log)
		v1.HandleFunc("/ws/host", wsHandler.HostWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics).Methods("GET")
	}

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/auth/learners/token", authHandler.LearnerToken).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/concepts/{conceptId}/stats", conceptHandler.Stats).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/modules/{moduleId}/submodules/{submoduleId}/dwell", conceptHandler.Dwell).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/students/{studentId}/progress", historyHandler.Progress).Methods("GET", "OPTIONS")

	// Learner routes (require learner auth)
	learnerRoutes := v1.NewRoute().Subrouter()
	learnerRoutes.Use(authMW.RequireLearner)

	learnerRoutes.HandleFunc("/slides/sessions", slideHandler.Mount).Methods("POST", "OPTIONS")
	learnerRoutes.HandleFunc("/slides/sessions/{sessionId}/interactions", slideHandler.RecordInteraction).Methods("PUT", "OPTIONS")
	learnerRoutes.HandleFunc("/slides/sessions/{sessionId}", slideHandler.Unmount).Methods("DELETE", "OPTIONS")
	learnerRoutes.HandleFunc("/completion", completionHandler.Start).Methods("POST", "OPTIONS")
	learnerRoutes.HandleFunc("/completion", completionHandler.Status).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/completion", completionHandler.Stop).Methods("DELETE", "OPTIONS")
	learnerRoutes.HandleFunc("/completion/return", completionHandler.Return).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(cfg CORSConfig) mux.MiddlewareFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = struct{}{}
	}
	allowedMethods := joinOr(cfg.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS")
	allowedHeaders := joinOr(cfg.AllowedHeaders, "Content-Type, Authorization")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
