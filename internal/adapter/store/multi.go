package store

import (
	"context"
	"fmt"
	"strings"

	"go.ngs.io/currents-api/internal/domain"
)

// Multi dispatches dataset locators by scheme: s3:// locators go to the
// remote loader, everything else is treated as a local file path.
type Multi struct {
	local  DatasetLoader
	remote DatasetLoader
}

// NewMulti creates a dispatching loader. remote may be nil, in which case
// s3:// locators fail with a configuration error.
func NewMulti(local, remote DatasetLoader) *Multi {
	return &Multi{local: local, remote: remote}
}

// Load resolves the locator through the loader matching its scheme.
func (m *Multi) Load(ctx context.Context, locator string) (*domain.Dataset, error) {
	if strings.HasPrefix(locator, "s3://") {
		if m.remote == nil {
			return nil, fmt.Errorf("no object storage configured for locator %q", locator)
		}
		return m.remote.Load(ctx, locator)
	}
	return m.local.Load(ctx, locator)
}
