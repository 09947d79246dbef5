// Command riskcheck prints a one-shot risk report for a single asset.
//
// Usage:
//
//	riskcheck -asset bitcoin -days 90
//	riskcheck              (interactive asset picker)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/config"
	"github.com/vadiminshakov/cryptorisk/internal"
	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/setup"
	"github.com/vadiminshakov/cryptorisk/pkg/indicators"
	"github.com/vadiminshakov/cryptorisk/pkg/logger"
)

func main() {
	var (
		assetID    string
		days       int
		configPath string
		verbose    bool
	)
	flag.StringVar(&assetID, "asset", "", "asset id, e.g. bitcoin; empty opens the picker")
	flag.IntVar(&days, "days", domain.DefaultWindow.Days(), "analysis window: 7, 30 or 90")
	flag.StringVar(&configPath, "config", "", "path to riskd yaml config")
	flag.BoolVar(&verbose, "v", false, "log upstream calls")
	flag.Parse()

	daysSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "days" {
			daysSet = true
		}
	})

	assetID, days, err := selectAsset(assetID, days, daysSet, setup.PickAsset)
	if err != nil {
		log.Fatal(err)
	}

	window, ok := domain.ParseWindow(days)
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported window %d, using %d days\n", days, window.Days())
	}

	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	l := zap.NewNop()
	if verbose {
		l = logger.New("debug")
	}
	defer l.Sync()

	sp, err := internal.NewServiceProvider(cfg, l)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	data, err := sp.Aggregator.Fetch(ctx, assetID, window.Days())
	if err != nil {
		log.Fatalf("fetch %s: %v", assetID, err)
	}
	if data.Empty() {
		log.Fatalf("No data found for asset: %s", assetID)
	}

	report := setup.Report{
		AssetID: assetID,
		Days:    window.Days(),
		Source:  data.Source,
		Result:  sp.Engine.ComputeRisk(data.Prices, data.CurrentVolume, data.AverageVolume),
	}
	if summary, err := indicators.Summarize(data.Prices); err == nil {
		report.Technical = &summary
	}

	fmt.Println(report.Render())
}

type pickFunc func(days int, askWindow bool) (string, int, error)

// selectAsset opens the picker when no asset was given. An explicit -days
// keeps its value and the picker only asks for the asset.
func selectAsset(assetID string, days int, daysSet bool, pick pickFunc) (string, int, error) {
	if assetID != "" {
		return assetID, days, nil
	}
	return pick(days, !daysSet)
}
