package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dropzone/internal/buildinfo"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/server"
	"github.com/dmitrijs2005/dropzone/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg := config.LoadConfig()

	logger, closeLog := logging.New(logging.Options{
		Format: "json",
		Level:  cfg.LogLevel,
		Writer: os.Stdout,
	})
	defer closeLog()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
