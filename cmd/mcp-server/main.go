// Package main implements the MCP server for the taskvault store.
//
// The server exposes the task operations (add, list, update status/title/
// description) as MCP tools over stdio JSON-RPC. Configuration comes from
// taskvault.yaml and TASKVAULT_* environment variables; see the config
// package for the full set of options.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/mcpserver"
	"github.com/taskvault/taskvault/internal/storage"
	"github.com/taskvault/taskvault/internal/tasks"
)

func run() int {
	errLogger := log.New(os.Stderr, "[taskvault-mcp] ", log.LstdFlags)

	cfg, err := config.Load("")
	if err != nil {
		errLogger.Printf("Failed to load configuration: %v", err)
		return 1
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := storage.NewRecordStoreFromConfig(cfg, logger)
	if err != nil {
		errLogger.Printf("Failed to create record store: %v", err)
		return 1
	}

	srv := mcpserver.NewServer(tasks.NewService(store))

	if err := server.ServeStdio(srv, server.WithErrorLogger(errLogger)); err != nil {
		errLogger.Printf("Server error: %v", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
