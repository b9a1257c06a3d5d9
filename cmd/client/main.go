package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dropzone/internal/buildinfo"
	"github.com/dmitrijs2005/dropzone/internal/client/cli"
	"github.com/dmitrijs2005/dropzone/internal/client/config"
	"github.com/dmitrijs2005/dropzone/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, closeLog := logging.New(logging.Options{
		Format:     "json",
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})
	defer closeLog()

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
