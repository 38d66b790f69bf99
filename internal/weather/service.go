package weather

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

// Service reads the forecast table through the shared warehouse handle.
type Service struct {
	handles      HandleSource
	table        warehouse.TableRef
	queryTimeout time.Duration
	recorder     QueryRecorder
	logger       *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithQueryTimeout bounds each forecast read. Zero means no timeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

// WithRecorder sets the metrics sink for forecast reads.
func WithRecorder(r QueryRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service for the given table.
func NewService(handles HandleSource, table warehouse.TableRef, opts ...Option) *Service {
	s := &Service{
		handles:  handles,
		table:    table,
		recorder: noopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the table this service reads.
func (s *Service) Table() warehouse.TableRef {
	return s.table
}

// Forecast returns every row of the forecast table, column-oriented.
//
// Errors are *warehouse.Error values: KindConnection when the handle could not
// be obtained, KindQuery when the read failed.
func (s *Service) Forecast(ctx context.Context) (warehouse.Columns, error) {
	start := time.Now()

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	h, err := s.handles.Get(ctx)
	if err != nil {
		s.observe(err, 0, start)
		return nil, err
	}

	cols, err := warehouse.ReadTable(ctx, h, s.table)
	if err != nil {
		s.logger.Warn("forecast read failed",
			zap.Stringer("table", s.table),
			zap.Error(err),
		)
		s.observe(err, 0, start)
		return nil, err
	}

	rows := cols.Len()
	s.logger.Debug("forecast read",
		zap.Stringer("table", s.table),
		zap.Int("rows", rows),
		zap.Int("columns", len(cols)),
		zap.Duration("elapsed", time.Since(start)),
	)
	s.observe(nil, rows, start)
	return cols, nil
}

func (s *Service) observe(err error, rows int, start time.Time) {
	kind := ""
	if err != nil {
		k, ok := warehouse.KindOf(err)
		if !ok {
			k = warehouse.KindQuery
		}
		kind = string(k)
	}
	s.recorder.Query(kind, rows, time.Since(start))
}
