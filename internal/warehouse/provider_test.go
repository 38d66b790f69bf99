package warehouse

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingConnector returns a ConnectFunc that hands out a sqlmock handle and
// counts how often it is invoked. failFirst makes the first n calls fail.
func countingConnector(t *testing.T, failFirst int32, delay time.Duration) (ConnectFunc, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	return func(ctx context.Context) (Handle, error) {
		n := calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if n <= failFirst {
			return nil, errors.New("bad credentials")
		}
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return db, nil
	}, &calls
}

func TestProviderReusesHandle(t *testing.T) {
	connect, calls := countingConnector(t, 0, 0)
	p := NewProvider(connect, nil)

	first, err := p.Get(context.Background())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		h, err := p.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, h)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, p.Attempts())
	assert.True(t, p.Ready())
}

func TestProviderFailureIsNotCached(t *testing.T) {
	connect, calls := countingConnector(t, 1, 0)
	p := NewProvider(connect, nil)

	_, err := p.Get(context.Background())
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConnection, kind)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.False(t, p.Ready())

	h, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, p.Ready())
}

func TestProviderConcurrentFirstAccessCreatesOnce(t *testing.T) {
	connect, calls := countingConnector(t, 0, 20*time.Millisecond)
	p := NewProvider(connect, nil)

	const callers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	handles := make([]Handle, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			handles[i], errs[i] = p.Get(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
}

func TestProviderReadinessDoesNotWaitOnConnect(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := NewProvider(func(context.Context) (Handle, error) {
		close(entered)
		<-release
		db, _, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		return db, nil
	}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Get(context.Background())
		done <- err
	}()
	<-entered

	read := make(chan struct{})
	go func() {
		defer close(read)
		assert.False(t, p.Ready())
		assert.Equal(t, 1, p.Attempts())
		_, ok := p.Current()
		assert.False(t, ok)
	}()

	select {
	case <-read:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("readiness blocked behind an in-flight connect")
	}

	close(release)
	require.NoError(t, <-done)
	assert.True(t, p.Ready())
	assert.Equal(t, 1, p.Attempts())
}

func TestProviderRejectsNilHandle(t *testing.T) {
	p := NewProvider(func(context.Context) (Handle, error) { return nil, nil }, nil)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errNilHandle)
	assert.False(t, p.Ready())
}

func TestProviderObserverSeesEveryAttempt(t *testing.T) {
	connect, _ := countingConnector(t, 2, 0)
	p := NewProvider(connect, nil)

	var failures, successes int
	p.OnAttempt(func(err error) {
		if err != nil {
			failures++
			return
		}
		successes++
	})

	for i := 0; i < 5; i++ {
		_, _ = p.Get(context.Background())
	}

	assert.Equal(t, 2, failures)
	assert.Equal(t, 1, successes)
}

func TestProviderCloseBeforeConnect(t *testing.T) {
	p := NewProvider(func(context.Context) (Handle, error) {
		t.Fatal("connect must not be called")
		return nil, nil
	}, nil)

	assert.NoError(t, p.Close())
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestOpenAndPing(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("warehouse-ping-ok", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	h, err := openAndPing(context.Background(), "sqlmock", "warehouse-ping-ok")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenAndPingFailure(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("warehouse-ping-fail", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("incorrect username or password"))

	h, err := openAndPing(context.Background(), "sqlmock", "warehouse-ping-fail")
	require.Error(t, err)
	assert.Nil(t, h)
	assert.Contains(t, err.Error(), "incorrect username or password")
}
