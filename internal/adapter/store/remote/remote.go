// Package remote resolves s3:// dataset locators from S3-compatible object
// storage.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	ncstore "go.ngs.io/currents-api/internal/adapter/store/netcdf"
	"go.ngs.io/currents-api/internal/domain"
)

// objectFetcher is the slice of the MinIO client the store depends on.
type objectFetcher interface {
	FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error
}

// Store downloads NetCDF current datasets from S3-compatible storage and
// decodes them via the local NetCDF store. NetCDF decoding needs a seekable
// file, so objects are staged to a temp file rather than streamed.
type Store struct {
	client objectFetcher
}

// NewStore creates a remote dataset store backed by a MinIO/S3 client.
func NewStore(client *minio.Client) *Store {
	return &Store{client: client}
}

// ParseLocator splits an s3://bucket/key locator. Reports ok=false for
// non-s3 locators.
func ParseLocator(locator string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(locator, "s3://") {
		return "", "", false
	}
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" || u.Path == "" {
		return "", "", false
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), true
}

// Load fetches the object behind an s3://bucket/key locator and decodes it
// as a NetCDF current dataset.
func (s *Store) Load(ctx context.Context, locator string) (*domain.Dataset, error) {
	bucket, key, ok := ParseLocator(locator)
	if !ok {
		return nil, fmt.Errorf("invalid s3 locator %q", locator)
	}

	tmp, err := os.CreateTemp("", "currents-*-"+path.Base(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := s.client.FGetObject(ctx, bucket, key, tmpPath, minio.GetObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("dataset object %s not found in bucket %s", key, bucket)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", locator, err)
	}

	ds, err := ncstore.LoadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", locator, err)
	}
	return ds, nil
}
