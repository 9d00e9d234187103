// Poncho Chat - HTTP сервер чата с вызовом инструментов.
//
// Использование:
//
//	go run ./cmd/poncho-chat -config config.yaml
//	curl -X POST localhost:3000/chat -d '{"message":"Weather in Paris?"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ilkoid/poncho-chat/internal/server"
	"github.com/ilkoid/poncho-chat/pkg/app"
	"github.com/ilkoid/poncho-chat/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config.yaml")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// 1. Конфигурация
	cfg, cfgPath, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: *configPath})
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// 2. Логгер
	if err := utils.InitLogger(cfg.App.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logger: %v\n", err)
	}
	utils.SetDebug(*debug || cfg.App.Debug)
	utils.Info("Poncho Chat starting", "config", cfgPath)

	ctx, shutdown := utils.SetupGracefulShutdownWithContext()
	defer shutdown()

	// 3. Компоненты
	comps, err := app.Initialize(cfg)
	if err != nil {
		utils.Error("Components initialization failed", "error", err)
		return err
	}

	srv := server.New(cfg.Server, comps.Orchestrator, comps.Metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Printf("Poncho Chat listening on %s\n", srv.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	utils.Info("Poncho Chat stopped")
	return nil
}
