package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the catalog
// API under /api.
//
// Middleware chain (applied in order):
//  1. WithRequestLogging(logger): logs every request
//  2. Recoverer: turns handler panics into 500
//  3. LocalOnly: rejects non-loopback clients
//  4. CORS for the given browser origins
//  5. AllowContentType: JSON or multipart bodies only
func NewRouter(
	records *RecordHandler,
	palettes *PaletteHandler,
	origins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.LocalOnly)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", records.List)
			r.Post("/", records.Create)
			r.Delete("/", records.Clear)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", records.Get)
				r.Put("/", records.Update)
				r.Delete("/", records.Delete)
				r.Get("/image", records.Image)
				r.Get("/export", records.ExportOne)
			})
		})
		r.Get("/export", records.ExportAll)
		r.Post("/import", records.Import)

		r.Route("/palettes", func(r chi.Router) {
			r.Get("/", palettes.List)
			r.Post("/", palettes.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", palettes.Delete)
				r.Post("/favorite", palettes.Favorite)
				r.Get("/export", palettes.Export)
				r.Get("/swatch.png", palettes.Swatch)
			})
		})
	})

	return r
}
