// Package fulfillment implements the supply workflows of the warehouse: order
// feeds, supply creation, snapshot synchronization, label generation, access
// distribution and the scan protocol.
package fulfillment

import (
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
)

// Outcomes reported to a Recorder.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeDenied = "denied"
)

// Scan steps reported to a Recorder.
const (
	StepScan      = "scan"
	StepLabelScan = "label_scan"
	StepCollect   = "collect"
)

const (
	addBatchPause     = 120 * time.Millisecond
	ordersWindow      = 30 * 24 * time.Hour
	catalogPageLimit  = 100
	catalogMaxPages   = 2000
	trashSearchLimit  = 20
	trashMaxPages     = 20
	searchLimit       = 10
	maxFailedIDs      = 20
	stickerMissingMsg = "Sticker not returned by marketplace"
)

// Config holds the limits and freshness windows used by the services.
type Config struct {
	ResolveBatch   int
	RateBackoff    time.Duration
	ProductTTL     time.Duration
	ProductMissTTL time.Duration
	SyncInterval   time.Duration
	OrderBatchSize int
	MaxCreateCount int
	AddBatchPause  time.Duration
	LabelBatchSize int
	Sticker        supply.StickerSpec
}

// ConfigFrom builds the service configuration from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ResolveBatch:   cfg.Supply.ResolveBatch,
		RateBackoff:    cfg.Supply.RateBackoff,
		ProductTTL:     cfg.Cache.ProductTTL,
		ProductMissTTL: cfg.Cache.ProductMissTTL,
		SyncInterval:   cfg.Supply.SyncInterval,
		OrderBatchSize: cfg.Supply.OrderBatchSize,
		MaxCreateCount: cfg.Supply.MaxCreateCount,
		AddBatchPause:  addBatchPause,
		LabelBatchSize: cfg.Labels.BatchSize,
		Sticker: supply.StickerSpec{
			Type:   cfg.Labels.Type,
			Width:  cfg.Labels.Width,
			Height: cfg.Labels.Height,
		},
	}
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		ResolveBatch:   30,
		RateBackoff:    60 * time.Second,
		ProductTTL:     6 * time.Hour,
		ProductMissTTL: 15 * time.Minute,
		SyncInterval:   60 * time.Second,
		OrderBatchSize: 100,
		AddBatchPause:  addBatchPause,
		LabelBatchSize: 100,
		Sticker:        supply.StickerSpec{Type: "png", Width: 58, Height: 40},
	}
}

// Recorder receives workflow outcomes, typically to export metrics.
type Recorder interface {
	LabelResult(outcome string)
	ScanResult(step, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LabelResult(string) {}
func (nopRecorder) ScanResult(string, string) {}
