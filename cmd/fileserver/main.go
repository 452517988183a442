package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filetrade/internal/fileserver"
	"github.com/dmitrijs2005/filetrade/internal/fileserver/config"
	"github.com/dmitrijs2005/filetrade/internal/logging"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	publisher, err := fileserver.NewS3Publisher(ctx, cfg)
	if err != nil {
		log.Fatalf("s3 init error: %v", err)
	}

	s := fileserver.NewFileServer(cfg.DirectoryPath, fileserver.BoxSealer{}, publisher, logger, cfg.PublishTimeout)
	if err := s.Run(ctx, cfg.ListenAddr); err != nil {
		logger.Error(ctx, "file server stopped", "error", err)
		os.Exit(1)
	}
}
