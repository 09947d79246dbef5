// Command riskd serves crypto asset risk analysis over HTTP.
//
// Usage:
//
//	riskd -config riskd.yaml
//	riskd -addr :8080 -bybit
//	riskd setup [path]   (interactive config wizard)
//
// Optional environment variables:
//
//	COINGECKO_API_KEY, RISK_LISTEN_ADDR, RISK_LOG_LEVEL,
//	BINANCE_BASE_URL, COINGECKO_BASE_URL, BYBIT_ENABLED
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/cryptorisk/config"
	"github.com/vadiminshakov/cryptorisk/internal"
	"github.com/vadiminshakov/cryptorisk/internal/setup"
	"github.com/vadiminshakov/cryptorisk/pkg/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		path := setup.DefaultConfigFile
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		if err := setup.RunTUI(path); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	l := logger.New(cfg.LogLevel)
	defer l.Sync()

	sp, err := internal.NewServiceProvider(cfg, l)
	if err != nil {
		l.Fatal("failed to build services", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sp.Server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		l.Error("riskd stopped with error", zap.Error(err))
		return
	}
	l.Info("riskd stopped")
}
