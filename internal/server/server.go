package server

import (
	"context"
	"log"

	"feedme-console/internal/bootstrap"
	"feedme-console/internal/config"
	"feedme-console/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

// Server exposes the console core's state to the embedding UI over local
// HTTP: connection status, notifications, processing progress, preferences.
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	srv := &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Console status server listening on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")

	api.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(s.container.Realtime.Snapshot())
	})

	api.Post("/connection/reconnect", func(c *fiber.Ctx) error {
		if err := s.container.Realtime.Reconnect(c.Context()); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(s.container.Realtime.Snapshot())
	})

	api.Post("/connection/disconnect", func(c *fiber.Ctx) error {
		s.container.Realtime.Disconnect()
		return c.JSON(s.container.Realtime.Snapshot())
	})

	// The UI reports view changes so realtime can idle on screens that never
	// render live data, such as settings.
	api.Post("/view", func(c *fiber.Ctx) error {
		var req struct {
			Path string `json:"path"`
		}
		if err := c.BodyParser(&req); err != nil || req.Path == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
		}
		skipped := s.cfg.Realtime.SkipsPath(req.Path)
		if skipped {
			s.container.Realtime.Suspend()
		} else {
			// Resume may redial in the background; the request context dies
			// with this handler, so hand it a detached one.
			s.container.Realtime.Resume(context.Background())
		}
		return c.JSON(fiber.Map{"path": req.Path, "realtime_skipped": skipped})
	})

	api.Get("/notifications", func(c *fiber.Ctx) error {
		unreadOnly := c.QueryBool("unread", false)
		return c.JSON(fiber.Map{
			"notifications": s.container.Notifications.List(unreadOnly),
			"unread_count":  s.container.Notifications.UnreadCount(),
		})
	})

	api.Post("/notifications/read-all", func(c *fiber.Ctx) error {
		s.container.Notifications.MarkAllRead()
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Post("/notifications/:id/read", func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
		}
		if !s.container.Notifications.MarkRead(id) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Delete("/notifications/:id", func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
		}
		if !s.container.Notifications.Dismiss(id) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Search requests arrive per keystroke; the debouncer makes sure only
	// the last one within the window reaches the backend.
	api.Post("/search", func(c *fiber.Ctx) error {
		var params dto.ConversationListParams
		if err := c.BodyParser(&params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid search payload"})
		}
		s.container.Search.Search(params)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"search": params.Search})
	})

	api.Get("/processing", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"updates": s.container.Processing.List()})
	})

	api.Get("/preferences", func(c *fiber.Ctx) error {
		prefs, err := s.container.Prefs.Load()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(prefs)
	})
}
