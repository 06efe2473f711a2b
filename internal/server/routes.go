package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("CrossGuess API", "/openapi.json", "/docs"))
	if d.Healthz != nil {
		r.Mount("/healthz", d.Healthz)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/ws/events", handleWSEvents(d.Logger, d.Modes, d.Broker))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleLiveness())
		r.Get("/wallet-info", handleWalletInfo(d.Modes))

		r.Post("/join", handleJoin(d.Logger, d.Modes, d.Metrics))
		// Paths used by the first frontend release.
		r.Post("/join-game", handleJoin(d.Logger, d.Modes, d.Metrics))

		r.Group(func(r chi.Router) {
			r.Use(modeMiddleware(d.Modes))
			r.Get("/status", handleStatus())
			r.Get("/game-status", handleStatus())
			r.Get("/result", handleResult())
			r.Get("/game-result", handleResult())
			r.Get("/events", handleEvents(d.Logger, d.Broker))
		})

		if d.Journal != nil {
			r.Get("/transfers", handleTransfers(d.Logger, d.Journal))
		}
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			d.Logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
