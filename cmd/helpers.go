package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/accuracy"
	"github.com/ridgeline-eng/docqc/internal/conflict"
	"github.com/ridgeline-eng/docqc/internal/extract"
	"github.com/ridgeline-eng/docqc/internal/monitoring"
	"github.com/ridgeline-eng/docqc/internal/queue"
	"github.com/ridgeline-eng/docqc/internal/sampler"
	"github.com/ridgeline-eng/docqc/internal/store"
	"github.com/ridgeline-eng/docqc/pkg/extractor"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "docqc.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func queueConfig() queue.Config {
	return queue.Config{
		Workers:      cfg.Queue.Workers,
		LeaseTTL:     time.Duration(cfg.Queue.LeaseTTLSecs) * time.Second,
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		ReapInterval: time.Duration(cfg.Queue.ReapIntervalSecs) * time.Second,
		MaxAttempts:  cfg.Queue.MaxAttempts,
	}
}

// buildOrchestrator wires the extraction pipeline components against the
// store and the external extraction service.
func buildOrchestrator(st store.Store) (*extract.Orchestrator, error) {
	if cfg.Extractor.BaseURL == "" {
		return nil, eris.New("extractor base URL is required (DOCQC_EXTRACTOR_BASE_URL)")
	}

	client := extractor.NewClient(cfg.Extractor.BaseURL, cfg.Extractor.APIKey)

	smp := sampler.New(sampler.Rates{
		LowConfidence:  cfg.Sampler.LowConfidenceRate,
		MidConfidence:  cfg.Sampler.MidConfidenceRate,
		HighConfidence: cfg.Sampler.HighConfidenceRate,
	})
	alerter := monitoring.NewAlerter(cfg.Monitoring)
	agg := accuracy.NewAggregator(st, accuracy.Config{
		Alpha:          cfg.Accuracy.Alpha,
		WarnWindow:     cfg.Accuracy.WarnWindow,
		RecoveryWindow: cfg.Accuracy.RecoveryWindow,
	}, alerter)
	det := conflict.NewDetector(st)

	extractCfg := extract.Config{
		CallTimeout:       time.Duration(cfg.Extractor.CallTimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Extractor.RequestsPerSecond,
	}
	extractCfg.Retry.MaxAttempts = cfg.Extractor.MaxRetries

	return extract.NewOrchestrator(st, client, smp, agg, det, extractCfg), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
