package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-warehouse-api/internal/store"
	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

// HandleCache exposes the cached warehouse handle without creating one.
type HandleCache interface {
	Current() (warehouse.Handle, bool)
}

// ProbeRecorder receives probe outcomes (see metrics.Recorder).
type ProbeRecorder interface {
	Probe(status string, up bool)
}

// Scheduler periodically pings the cached warehouse handle and records the result.
// It never creates or replaces the handle.
type Scheduler struct {
	scheduler *gocron.Scheduler
	circuit   *gobreaker.CircuitBreaker
	handles   HandleCache
	results   *store.MemoryStore
	recorder  ProbeRecorder
	logger    *zap.Logger
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. recorder and logger may be nil.
func New(interval time.Duration, handles HandleCache, results *store.MemoryStore, recorder ProbeRecorder, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := interval / 2
	if timeout <= 0 || timeout > 30*time.Second {
		timeout = 30 * time.Second
	}

	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		handles:   handles,
		results:   results,
		recorder:  recorder,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
	}
	s.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "warehouse-probe",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("probe circuit state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return s
}

// Start schedules the periodic probe and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: probe interval is zero; warehouse probing disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Probe(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future probes.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// CircuitState reports the probe circuit breaker state.
func (s *Scheduler) CircuitState() string {
	return s.circuit.State().String()
}

// Probe runs one probe and records it.
func (s *Scheduler) Probe(ctx context.Context) store.ProbeResult {
	start := time.Now()
	result := store.ProbeResult{Timestamp: start.UTC()}

	h, ok := s.handles.Current()
	if !ok {
		result.Status = store.ProbeUninitialized
		s.record(result)
		return result
	}

	_, err := s.circuit.Execute(func() (interface{}, error) {
		return nil, h.PingContext(ctx)
	})
	result.Latency = time.Since(start)

	switch {
	case err == nil:
		result.Status = store.ProbeOK
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		result.Status = store.ProbeCircuitOpen
		result.Error = err.Error()
	default:
		result.Status = store.ProbeFailed
		result.Error = err.Error()
		s.logger.Warn("warehouse probe failed", zap.Error(err), zap.Duration("latency", result.Latency))
	}

	s.record(result)
	return result
}

func (s *Scheduler) record(result store.ProbeResult) {
	if s.results != nil {
		s.results.Save(result)
	}
	if s.recorder != nil {
		s.recorder.Probe(string(result.Status), result.Status == store.ProbeOK)
	}
}
