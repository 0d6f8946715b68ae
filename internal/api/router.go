package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(app.Log))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/videos", func(r chi.Router) {
		r.Post("/", app.UploadHandler)
		r.Post("/url", app.SubmitURLHandler)
		r.Get("/{id}", app.GetVideoHandler)
		r.Get("/{id}/objects", app.ListObjectsHandler)
		r.Post("/{id}/reprocess", app.ReprocessHandler)
	})

	r.Get("/search", app.SearchHandler)

	r.Route("/users/{userID}/search-mode", func(r chi.Router) {
		r.Post("/", app.EnterSearchModeHandler)
		r.Get("/", app.SearchModeStatusHandler)
		r.Delete("/", app.LeaveSearchModeHandler)
		r.Post("/query", app.SearchModeQueryHandler)
	})

	r.Get("/blob/{key}", app.ServeBlobHandler)

	return r
}

// requestLogger logs one line per request once the handler returns.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("Request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
