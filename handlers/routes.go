package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/camden-git/echobackend/metrics"
	"github.com/camden-git/echobackend/realtime"
)

type RouterOptions struct {
	AllowedOrigins []string
	JWTSecret      []byte
	Checkins       *CheckinHandler
	Uploads        *UploadHandler
	Hub            *realtime.Hub
}

// NewRouter mounts every endpoint of the service
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)
	r.Use(metrics.InstrumentHandler)

	r.Get("/health", Health)
	r.Handle("/metrics", metrics.Handler())

	auth := AuthMiddleware(opts.JWTSecret)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/ws", StatusStream(opts.Hub))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/upload", opts.Uploads.CreateUploadURL)
		r.Post("/checkins", opts.Checkins.SubmitCheckin)
		r.Get("/checkins/{entry_id}/status", opts.Checkins.GetCheckinStatus)
		r.Get("/entries", opts.Checkins.ListEntries)
		r.Get("/entries/{entry_id}", opts.Checkins.GetEntry)
	})

	return r
}
