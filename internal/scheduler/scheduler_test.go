package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warehouse-api/internal/store"
	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

type staticCache struct {
	h warehouse.Handle
}

func (c staticCache) Current() (warehouse.Handle, bool) {
	return c.h, c.h != nil
}

type probeLog struct {
	statuses []string
	up       []bool
}

func (p *probeLog) Probe(status string, up bool) {
	p.statuses = append(p.statuses, status)
	p.up = append(p.up, up)
}

func TestProbeUninitialized(t *testing.T) {
	results := store.NewMemoryStore(10, 0)
	rec := &probeLog{}
	s := New(time.Minute, staticCache{}, results, rec, nil)

	got := s.Probe(context.Background())
	assert.Equal(t, store.ProbeUninitialized, got.Status)

	latest, err := results.Latest()
	require.NoError(t, err)
	assert.Equal(t, store.ProbeUninitialized, latest.Status)
	assert.Equal(t, []string{"uninitialized"}, rec.statuses)
	assert.Equal(t, []bool{false}, rec.up)
}

func TestProbePingsHandle(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	results := store.NewMemoryStore(10, 0)
	rec := &probeLog{}
	s := New(time.Minute, staticCache{h: db}, results, rec, nil)

	got := s.Probe(context.Background())
	assert.Equal(t, store.ProbeOK, got.Status)
	assert.Empty(t, got.Error)
	assert.Equal(t, []bool{true}, rec.up)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbeOpensCircuitAfterRepeatedFailures(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	for i := 0; i < 3; i++ {
		mock.ExpectPing().WillReturnError(errors.New("network unreachable"))
	}

	results := store.NewMemoryStore(10, 0)
	s := New(time.Minute, staticCache{h: db}, results, nil, nil)

	for i := 0; i < 3; i++ {
		got := s.Probe(context.Background())
		assert.Equal(t, store.ProbeFailed, got.Status)
		assert.Contains(t, got.Error, "network unreachable")
	}
	assert.Equal(t, "open", s.CircuitState())

	got := s.Probe(context.Background())
	assert.Equal(t, store.ProbeCircuitOpen, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 4, results.FailuresSince(time.Now().Add(-time.Minute)))
}

func TestStartDisabled(t *testing.T) {
	s := New(0, staticCache{}, store.NewMemoryStore(1, 0), nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartRunsProbes(t *testing.T) {
	results := store.NewMemoryStore(10, 0)
	s := New(50*time.Millisecond, staticCache{}, results, nil, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		_, err := results.Latest()
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
