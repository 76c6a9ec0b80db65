// Package server exposes the databases under the data directory over HTTP.
package server

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Yarin78/morphy-sub004/config"
	"github.com/Yarin78/morphy-sub004/server/routes"
)

type Server struct {
	cfg config.Config
	app *fiber.App
	dbs *routes.Databases
}

func New(cfg config.Config) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          routes.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("request", "method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode(), "took", time.Since(start))
		return err
	})

	dbs := routes.NewDatabases(cfg.DataDir, cfg.CacheSize)
	routes.SetupRoutes(app.Group("/api"), dbs)
	return &Server{cfg: cfg, app: app, dbs: dbs}
}

func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	log.Info("fiber listening", "addr", s.cfg.Listen, "dataDir", s.cfg.DataDir)
	return s.app.Listen(s.cfg.Listen)
}

// Shutdown stops accepting requests and closes every open database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	return errors.Join(err, s.dbs.CloseAll())
}
