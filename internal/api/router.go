package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/diary-be/internal/api/handlers"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/isdelr/diary-be/internal/services"
	"github.com/isdelr/diary-be/internal/websocket"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Users    services.UserServiceProvider
	Diary    services.DiaryServiceProvider
	Verifier auth.TokenVerifier
	Hub      *websocket.Hub
	Store    handlers.Pinger
	Stats    handlers.HostStatsSource
	Metrics  *metrics.Metrics

	CORSOrigins  []string
	CookieSecure bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Metrics))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	userHandler := handlers.NewUserHandler(d.Users, d.CookieSecure)
	diaryHandler := handlers.NewDiaryHandler(d.Diary)
	healthHandler := handlers.NewHealthHandler(d.Store, d.Stats)
	var wsHandler *handlers.WebSocketHandler
	if d.Hub != nil {
		wsHandler = handlers.NewWebSocketHandler(d.Hub, d.CORSOrigins)
	}

	routes := func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Post("/logout", userHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(d.Verifier))

			r.Get("/me", userHandler.GetMe)
			r.Post("/diary", diaryHandler.Create)
			r.Get("/diary/history", diaryHandler.History)
			if wsHandler != nil {
				r.Get("/diary/stream", wsHandler.Serve)
			}
		})
	}

	r.Get("/healthz", healthHandler.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(routes)
	r.Route("/api", routes)

	return r
}
