package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/GoRAG/internal/bootstrap"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/mcpServer"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $KB_CONFIG or config/config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol, logs go to stderr
	logger_i.InitWriter(cfg.Log.Level, true, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting knowledge base: %w", err)
	}
	defer app.Close()

	srv, err := mcpServer.NewServer(app.Service)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
