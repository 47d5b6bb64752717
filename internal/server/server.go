package server

import (
	"context"

	"winnow-be/internal/bootstrap"
	"winnow-be/internal/config"
	"winnow-be/internal/pkg/serverutils"
	"winnow-be/pkg/spa"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const serverModule = "Server"

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:               config.AppName,
		BodyLimit:             512 * 1024 * 1024, // collections are uploaded whole
		DisableStartupMessage: true,
		// Run ids carry colons that clients send percent-encoded.
		UnescapePath: true,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)
	registerSPA(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info(serverModule, "Server is running", map[string]interface{}{"url": "http://localhost:" + s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.CollectionController.RegisterRoutes(api)
	c.KeywordListController.RegisterRoutes(api)
	c.RunController.RegisterRoutes(api)
	c.MetadataController.RegisterRoutes(api)
	c.LogController.RegisterRoutes(api)

	// Unknown API paths must not fall through to the SPA.
	api.All("/*", func(ctx *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	c.ProgressHandler.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(c.Metrics.Handler()))
}

// registerSPA goes last so every other route wins.
func registerSPA(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	resolver, err := spa.New(cfg.App.SpaPath, spa.DefaultIndex)
	if err != nil {
		c.Logger.Warn(serverModule, "SPA directory unavailable, serving API only", map[string]interface{}{"path": cfg.App.SpaPath, "error": err.Error()})
		return
	}
	app.Get("/*", resolver.Handler())
}
