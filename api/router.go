package api

import (
	"chat-relay/contract"
	"chat-relay/services"
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserHeader carries the caller's participant name.
const UserHeader = "User"

// NewRouter creates and configures the HTTP router.
func NewRouter(
	log *slog.Logger,
	presence services.IPresenceService,
	messages services.IMessageService,
	store contract.Pinger,
	maxBodyBytes int64,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(maxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", UserHeader},
		MaxAge:         300,
	}))

	h := NewHandler(log, presence, messages, store)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/participants", func(r chi.Router) {
		r.Post("/", h.Join)
		r.Get("/", h.ListParticipants)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Post("/", h.PostMessage)
		r.Get("/", h.ListMessages)
		r.Put("/{id}", h.EditMessage)
		r.Delete("/{id}", h.DeleteMessage)
	})

	r.Post("/status", h.Heartbeat)

	return r
}
