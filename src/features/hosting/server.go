package hosting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/importing"
	"github.com/denniswebb/mediacms/src/features/watching"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// History answers per-path ledger lookups for the status endpoints.
type History interface {
	RecordsForPath(ctx context.Context, path string) ([]*importing.ImportRecord, error)
}

// Server is the status and metrics HTTP endpoint. It is read-only: the
// watcher is driven entirely by configuration and the filesystem.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates the HTTP server exposing health, watcher status,
// per-path import history, redacted configuration and Prometheus metrics.
func NewServer(cfg *config.Manager, watchService *watching.Service, history History, gatherer prometheus.Gatherer) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "mediacms-watch",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/statusz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"watchers": watchService.StatusSnapshot(),
		})
	})

	app.Get("/historyz", func(c *fiber.Ctx) error {
		path := c.Query("path")
		if path == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "path query parameter is required",
			})
		}
		records, err := history.RecordsForPath(c.Context(), path)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"path":    path,
			"records": records,
		})
	})

	app.Get("/configz", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cfg.GetJSON())
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
