package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genstudio/internal/http/handlers"
	"genstudio/internal/middleware"
)

// RouterOptions carries the cross-cutting knobs the router wires in front of
// the handlers.
type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

// NewRouter mounts the API under /v1.
func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(*app.Logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Post("/images/generations", app.GenerateImages)

		r.Route("/videos", func(r chi.Router) {
			r.Post("/generations", app.SubmitVideo)
			r.Get("/{jobID}", app.VideoStatus)
			r.Post("/{jobID}/retry", app.RetryVideo)
			r.Delete("/{jobID}", app.CancelVideo)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", app.ListQueue)
			r.Post("/clear", app.ClearQueue)
			r.Put("/active", app.SetActiveJob)
			r.Patch("/{jobID}", app.UpdateJob)
			r.Delete("/{jobID}", app.RemoveJob)
		})

		r.Get("/results", app.ListResults)
		r.Delete("/results", app.ClearResults)

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", app.ListGallery)
			r.Post("/", app.SaveToGallery)
			r.Get("/export", app.ExportGallery)
			r.Post("/delete", app.RemoveGalleryItems)
			r.Delete("/{itemID}", app.RemoveGalleryItem)
			r.Post("/{itemID}/favorite", app.ToggleFavorite)
			r.Put("/{itemID}/tags", app.SetTags)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/enhance", app.EnhancePrompt)
			r.Get("/history", app.ListPromptHistory)
			r.Post("/history", app.RecordPrompt)
			r.Delete("/history", app.ClearPromptHistory)
			r.Delete("/history/{itemID}", app.RemovePrompt)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", app.GetSettings)
			r.Patch("/", app.UpdateSettings)
			r.Post("/reset", app.ResetSettings)
		})
	})

	return r
}
