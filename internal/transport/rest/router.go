package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"dressup/internal/ai"
	"dressup/internal/session"
	"dressup/internal/transport/rest/handler"
	"dressup/internal/transport/rest/middleware"
	"dressup/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	Sessions *session.Store
	Watcher  *session.Watcher
	Provider ai.Provider

	// ServerAPIKey is the fallback image generation credential.
	ServerAPIKey string
	// PublicBaseURL feeds the QR join link.
	PublicBaseURL string
	// CORSAllowedOrigins is the Access-Control-Allow-Origin value.
	CORSAllowedOrigins string
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.Sessions, c.PublicBaseURL)
	roundHandler := handler.NewRoundHandler(c.Sessions)
	generateHandler := handler.NewGenerateHandler(c.Sessions, c.Provider, c.ServerAPIKey)
	eventsHandler := handler.NewEventsHandler(c.Watcher)
	wsHandler := ws.NewHandler(c.Watcher)

	authMW := middleware.NewAuth(c.Sessions)

	r.Use(corsMiddleware(c.CORSAllowedOrigins))
	r.Use(requestLogger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionID}", sessionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionID}/join", sessionHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionID}/qr", sessionHandler.QR).Methods("GET")
	v1.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/prompts", roundHandler.SubmitPrompt).Methods("POST", "OPTIONS")
	v1.HandleFunc("/generate", generateHandler.Compose).Methods("POST", "OPTIONS")

	// Live feeds: access scoping happens on the stream itself so clients
	// get a typed terminal event instead of a failed connection.
	v1.HandleFunc("/sessions/{sessionID}/events", eventsHandler.Stream).Methods("GET")
	v1.HandleFunc("/ws/sessions/{sessionID}", wsHandler.Serve).Methods("GET")

	// Host routes (require the session's host secret)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/sessions/{sessionID}/settings", sessionHandler.UpdateSettings).Methods("PATCH", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/reset", sessionHandler.Reset).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/advance", roundHandler.Advance).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/goal-image", roundHandler.GoalImage).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/start", roundHandler.Start).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/score", roundHandler.Score).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/generate", generateHandler.Generate).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{sessionID}/rounds/{roundIndex}/generate-batch", generateHandler.GenerateBatch).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.HostSecretHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs completed requests, skipping stream endpoints whose
// duration is just the connection lifetime.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasSuffix(r.URL.Path, "/events") || strings.Contains(r.URL.Path, "/ws/") {
			return
		}
		log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("dur", time.Since(start)).Msg("http")
	})
}
