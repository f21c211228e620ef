package router

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/handlers"
	"github.com/linkdash/linkdash/internal/middleware"
)

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	r.Use(middleware.GzipMiddleware)            // Gzip-сжатие

	r.Get("/ping", handler.Ping)

	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", handler.CreateLink)
		r.Get("/", handler.ListLinks)
		r.Delete("/{id}", handler.DeleteLink)
		r.Patch("/{id}", handler.UpdateLink)
		r.Get("/{id}/stats", handler.LinkStats)
	})

	r.Get("/{alias}", handler.Redirect)
	return r
}
