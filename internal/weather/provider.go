package weather

import (
	"context"
	"time"

	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

// HandleSource hands out the shared warehouse handle (see warehouse.Provider).
type HandleSource interface {
	Get(ctx context.Context) (warehouse.Handle, error)
}

// QueryRecorder receives one observation per forecast read. kind is empty on success.
type QueryRecorder interface {
	Query(kind string, rows int, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Query(string, int, time.Duration) {}
