package storage

import (
	"context"
	"errors"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	infraconfig "github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
)

// ErrStorageNotConfigured is returned by DisabledStorage.
var ErrStorageNotConfigured = errors.New("S3 не настроен")

// DisabledStorage stands in for object storage when no bucket is configured.
// Every upload fails, so label jobs record the error per order.
type DisabledStorage struct{}

// Ensure DisabledStorage implements supply.ObjectStorage
var _ supply.ObjectStorage = DisabledStorage{}

// Upload always fails with ErrStorageNotConfigured.
func (DisabledStorage) Upload(context.Context, string, []byte, string) (string, error) {
	return "", ErrStorageNotConfigured
}

// New returns S3 storage when cfg is complete and DisabledStorage otherwise.
func New(cfg *infraconfig.StorageConfig, opts ...S3Option) (supply.ObjectStorage, error) {
	if cfg == nil || !cfg.Enabled() {
		return DisabledStorage{}, nil
	}
	return NewS3LabelStorage(cfg, opts...)
}
