// Command memoryd is the process bring-up for the Memory kernel server:
// it loads a board file, binds a port, and serves the wire protocol.
// Board-file parsing, port binding, and the HTTP routes themselves are
// all external collaborators; this file is their composition root.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"memory-arena-server/boardloader"
	"memory-arena-server/config"
	"memory-arena-server/internal/httpx"
	"memory-arena-server/internal/loghandler"
	"memory-arena-server/internal/wsbridge"
	"memory-arena-server/kernel"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("cmd/memoryd/.env"); err2 != nil {
			log.Print("No .env file found; using environment variables.")
		}
	}

	logger := slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo))
	slog.SetDefault(logger)

	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.BoardPath = os.Args[1]
	}

	grid, err := loadBoard(cfg.BoardPath)
	if err != nil {
		logger.Error("failed to load board", "tag", "memoryd", "path", cfg.BoardPath, "error", err)
		os.Exit(1)
	}
	logger.Info("board loaded", "tag", "memoryd", "path", cfg.BoardPath, "rows", grid.Rows, "cols", grid.Cols)

	k := kernel.New(grid, cfg.FlipParkTimeout())

	mux := http.NewServeMux()
	handler := httpx.NewHandler(k, cfg.DefaultWatchTimeout(), logger)
	handler.Routes(mux)

	bridge := wsbridge.NewBridge(k, cfg.DefaultWatchTimeout(), logger)
	mux.HandleFunc("GET /ws/{player}", bridge.ServeWS)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("memory kernel server listening", "tag", "memoryd", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received", "tag", "memoryd")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "tag", "memoryd", "error", err)
		os.Exit(1)
	}
}

func loadBoard(path string) (*kernel.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return boardloader.Load(f)
}
