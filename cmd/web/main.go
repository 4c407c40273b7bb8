package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"odapstat/internal/app"
)

// Embedded upload page
//
//go:embed all:ui/*
var uiFiles embed.FS

func main() {
	var frontendFS fs.FS
	if uiSubFS, err := fs.Sub(uiFiles, "ui"); err == nil {
		frontendFS = uiSubFS
	} else {
		slog.Warn("UI embedding failed, serving API only", slog.String("error", err.Error()))
		frontendFS = nil
	}

	application, err := app.NewApplication(frontendFS)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
