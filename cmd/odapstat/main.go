package main

import (
	"context"
	"log"
	"os"

	"odapstat/internal/config"
	"odapstat/internal/infrastructure"
	"odapstat/internal/services"
	"odapstat/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	service := services.NewReportService(cfg, logger, nil)
	validator := validation.NewUploadValidator(logger, cfg.Upload.MaxSize, nil)

	rootCommand := newRootCommand(
		newGenerateCommand(service, validator),
		newExampleCommand(service),
	)

	if err := rootCommand.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
