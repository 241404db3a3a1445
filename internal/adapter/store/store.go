// Package store defines how gridded current datasets are acquired.
package store

import (
	"context"

	"go.ngs.io/currents-api/internal/domain"
)

// DatasetLoader resolves an opaque locator (a local file path, or an s3://
// object URL) into an in-memory gridded dataset.
type DatasetLoader interface {
	// Load fetches and decodes the dataset identified by locator.
	Load(ctx context.Context, locator string) (*domain.Dataset, error)
}

// DatasetSaver persists a dataset to a local file path.
type DatasetSaver interface {
	// Save writes the dataset to the given path.
	Save(ctx context.Context, path string, ds *domain.Dataset) error
}
