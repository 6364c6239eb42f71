package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/DandyChux/raecer-bot/app/api"
	"github.com/DandyChux/raecer-bot/app/client/llm"
	"github.com/DandyChux/raecer-bot/app/client/ner"
	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/cleanup"
	"github.com/DandyChux/raecer-bot/app/service/conversation"
	"github.com/DandyChux/raecer-bot/app/service/storage"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/DandyChux/raecer-bot/app/service/summary"
	"github.com/DandyChux/raecer-bot/app/service/vocab"
	"github.com/DandyChux/raecer-bot/app/util/mylog"
	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, ner.NewClient)
	do.Provide(di, llm.NewClient)
	do.Provide(di, store.New)
	do.Provide(di, vocab.New)
	do.Provide(di, storage.New)
	do.Provide(di, conversation.New)
	do.Provide(di, summary.New)
	do.Provide(di, cleanup.New)
	do.Provide(di, api.New)

	slog.Info("Service started", "addr", cfg.Server.Addr)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*cleanup.Service](di).Run(appCtx)

	server := do.MustInvoke[*api.Server](di)

	go func() {
		if err := server.Listen(); err != nil {
			slog.Error("Server stopped", "error", err)
			cancel()
		}
	}()

	<-appCtx.Done()

	if err = server.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
