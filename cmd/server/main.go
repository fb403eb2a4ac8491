// Package main is the entry point for the piano library server. It stays
// minimal: read configuration, build the logger, hand off to internal/server.
package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/sakif/piano-library/internal/config"
	"github.com/sakif/piano-library/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Optional config file: first argument, else CONFIG_PATH, else
	// ./config.toml. A missing file just means defaults.
	configPath := "config.toml"
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		configPath = env
	}
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// PORT overrides the config file, matching how the server has always
	// been deployed.
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
		cfg.Server.Port = port
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
