// Package server assembles the HTTP surface: public menu, admin API and health.
package server

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	catH "github.com/fekuna/omnipos-qrmenu/internal/category/handler"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	menuH "github.com/fekuna/omnipos-qrmenu/internal/menu/handler"
	"github.com/fekuna/omnipos-qrmenu/internal/middleware"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	prodH "github.com/fekuna/omnipos-qrmenu/internal/product/handler"
	tableH "github.com/fekuna/omnipos-qrmenu/internal/table/handler"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	undoH "github.com/fekuna/omnipos-qrmenu/internal/undo/handler"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Categories *catH.CategoryHandler
	Products   *prodH.ProductHandler
	Tables     *tableH.TableHandler
	Menu       *menuH.MenuHandler
	Health     *HealthHandler
	Undo       *undo.Registry
	Logger     logger.ZapLogger

	APIKeys        []string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, auth.SessionHeader},
		ExposedHeaders: []string{undoH.BatchHeader, undoH.DeadlineHeader},
		MaxAge:         300,
	}))

	r.Get("/health", d.Health.ServeHTTP)

	r.Route("/menu", d.Menu.Routes)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(d.APIKeys))
		r.Use(middleware.AdminSession)

		r.Route("/undo", undoH.NewSessionHandler(d.Undo, d.Logger).Routes)
		r.Route("/categories", func(r chi.Router) {
			r.Route("/undo", undoH.NewUndoHandler(d.Undo, ordering.KindCategory, d.Logger).Routes)
			d.Categories.Routes(r)
		})
		r.Route("/products", func(r chi.Router) {
			r.Route("/undo", undoH.NewUndoHandler(d.Undo, ordering.KindProduct, d.Logger).Routes)
			d.Products.Routes(r)
		})
		r.Route("/tables", d.Tables.Routes)
	})

	return r
}
