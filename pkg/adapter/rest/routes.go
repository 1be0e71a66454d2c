package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the chi router for the REST API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", KeyIDHeader, SignedTokenHeader, FileSizeHeader},
		MaxAge:         300,
	}))

	// Registration is the only endpoint reachable without authentication.
	r.Post("/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/storage", h.handleStorageUsage)
		r.Get("/storage/nodes", h.handleListStorageNodes)

		r.Route("/folders", func(r chi.Router) {
			r.Post("/mkdir", h.handleMkdir)
			r.Post("/rename", h.handleRenameFolder)
			r.Post("/move", h.handleMoveFolder)
			r.Get("/list", h.handleListFolder)
			r.Delete("/", h.handleDeleteFolder)
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.handleUpload)
			r.Get("/download", h.handleDownload)
			r.Delete("/", h.handleDeleteFile)
		})
	})

	return r
}
