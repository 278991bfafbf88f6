// Command solver runs the batch-auction solver's HTTP surface: POST
// /solve, GET /health (spec §6), shutting down gracefully on SIGINT/
// SIGTERM (spec §6 "Exit codes"). Structure follows the teacher-adjacent
// `uhyunpark-hyperlicked/cmd/node/main.go`: load config, build a logger,
// wire the domain object graph, start the HTTP server in a goroutine,
// block on a signal-scoped context.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/johnayoung/cowsolver/internal/api"
	"github.com/johnayoung/cowsolver/internal/config"
	"github.com/johnayoung/cowsolver/pkg/oracle"
	"github.com/johnayoung/cowsolver/pkg/solver"
)

func main() {
	cfg := config.LoadFromEnv("")

	var logger *zap.Logger
	var err error
	if cfg.LogFile != "" {
		logger, err = newLoggerWithFile(cfg.LogFile)
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("solver_starting",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("intermediaries", len(cfg.Intermediaries)),
		zap.Duration("deadline", cfg.Deadline),
	)

	// No Sources are wired here: the auction payload's own "prices" field
	// (spec §6) and the last-known cache are the only price inputs this
	// deployment uses. A production RPC-backed spot source would satisfy
	// oracle.Source and append here; ETHEREUM_RPC_URL is read into cfg for
	// that future wiring (spec §6 names it required for "pool state
	// fetches outside the solve path" — the liquidity set itself arrives
	// fully formed in each request today, per spec §6's auction schema).
	agg := oracle.NewAggregator(cfg.WETH, logger)
	driver := solver.New(agg, cfg.Intermediaries, logger)
	server := api.NewServer(driver, logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_starting", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_signal_received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Deadline)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("solver_stopped")
}
