package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/peerscore/internal/domain/identity"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/pkg/metrics"
)

// Open returns the Store for driver. path is only used by the sqlite driver.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemStore(), nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

func observe(driver, operation string, start time.Time) {
	metrics.RecordRepositoryLatency(driver, operation, float64(time.Since(start).Microseconds())/1000)
}

// targetNameKey is the stored lookup key of a free-text target.
func targetNameKey(e model.Evaluation) string {
	if e.TargetID > 0 {
		return ""
	}
	return identity.NormalizeName(e.TargetName)
}
