// Command seufit fits a Weibull cross-section model to an SEU test campaign
// and prints the analysis report. Observations are read from a CSV of
// let,count,fluence rows; without a file it runs a built-in demo campaign.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"seufit/adapters/postgres"
	"seufit/app"
	"seufit/domain/seu"
	"seufit/internal/config"
	"seufit/internal/testkit"
	"seufit/ports"
)

func main() {
	if err := run(); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "campaign CSV with let,count,fluence rows (header optional)")
	flag.Parse()

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(cfg.LogLevel),
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	var ledger ports.ResultLedger
	if cfg.LedgerDSN != "" {
		db, err := postgres.Connect(ctx, cfg.LedgerDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		ledger = postgres.NewResultLedger(db)
		logger.Info("result ledger enabled")
	}

	obs, err := loadCampaign(*csvPath)
	if err != nil {
		return err
	}
	logger.Info("campaign loaded", "points", len(obs))

	service := app.NewAnalysisService(cfg, ledger, logger)
	report, err := service.Run(ctx, obs)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary())
	for _, w := range report.Warnings {
		logger.Warn(w.Message, "code", w.Code)
	}
	return nil
}

// loadCampaign reads let,count,fluence rows; an empty path yields the demo
// campaign.
func loadCampaign(path string) ([]seu.Observation, error) {
	if path == "" {
		return testkit.HeavyIonCampaign(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open campaign file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse campaign CSV: %w", err)
	}

	var obs []seu.Observation
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("row %d: expected 3 columns, got %d", i+1, len(row))
		}
		let, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad LET %q", i+1, row[0])
		}
		count, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad count %q", i+1, row[1])
		}
		fluence, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad fluence %q", i+1, row[2])
		}
		o, err := seu.NewObservation(let, count, fluence)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
