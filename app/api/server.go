package api

import (
	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/cleanup"
	"github.com/DandyChux/raecer-bot/app/service/conversation"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/DandyChux/raecer-bot/app/service/summary"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

type Server struct {
	cfg *config.Config
	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	app := fiber.New(fiber.Config{
		AppName:               "raecer-bot",
		DisableStartupMessage: true,
	})

	handler := NewHandler(
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*summary.Service](di),
		do.MustInvoke[*store.Service](di),
		do.MustInvoke[*cleanup.Service](di),
	)
	handler.Register(app)

	return &Server{
		cfg: cfg,
		app: app,
	}, nil
}

func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
