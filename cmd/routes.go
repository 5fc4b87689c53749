package main

import (
	"net/http"

	"tomatoService/internal/auth"
	"tomatoService/internal/events"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (app *App) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Use(middleware.Heartbeat("/ping"))

	timerHandler := NewTimerHandler(app.Service, app.Adapter, app.Recorder)
	authHandler := NewAuthHandler(app.Auth)
	eventsHandler := events.NewHandler(app.Hub, func() any { return timerHandler.snapshot() })

	mux.Post("/auth/token", authHandler.IssueToken)

	mux.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(app.Auth))

		r.Post("/messages", timerHandler.HandleMessage)
		r.Get("/state", timerHandler.GetState)
		r.Post("/notifications/click", timerHandler.NotificationClick)
		r.Get("/stats", timerHandler.GetStats)
		r.Method(http.MethodGet, "/events", eventsHandler)
	})

	return mux
}
