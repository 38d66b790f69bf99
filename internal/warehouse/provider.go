package warehouse

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
)

// Handle is an authenticated warehouse session. *sql.DB satisfies it.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
	Close() error
}

// ConnectFunc creates a new handle. It is called at most once per successful
// initialization of a Provider.
type ConnectFunc func(ctx context.Context) (Handle, error)

// AttemptObserver is notified after every creation attempt.
type AttemptObserver func(err error)

// Provider owns the single, lazily created warehouse handle shared by all requests.
//
// A failed creation is not cached: the next Get tries again. Once a handle exists
// it is returned without any I/O for the rest of the process lifetime.
type Provider struct {
	connect  ConnectFunc
	logger   *zap.Logger
	observer AttemptObserver

	// initMu serializes creation and is held across connect. mu guards the
	// fields below and is never held during I/O, so readiness reads never wait
	// on a login in progress.
	initMu   sync.Mutex
	mu       sync.RWMutex
	handle   Handle
	attempts int
}

// NewProvider creates an uninitialized Provider.
func NewProvider(connect ConnectFunc, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		connect: connect,
		logger:  logger,
	}
}

// OnAttempt registers an observer for creation attempts. Call before first use.
func (p *Provider) OnAttempt(fn AttemptObserver) {
	p.observer = fn
}

// Get returns the shared handle, creating it on first use.
//
// Concurrent first callers wait for the one in-flight attempt instead of racing
// to create their own.
func (p *Provider) Get(ctx context.Context) (Handle, error) {
	if h, ok := p.Current(); ok {
		return h, nil
	}

	p.initMu.Lock()
	defer p.initMu.Unlock()

	if h, ok := p.Current(); ok {
		return h, nil
	}

	p.mu.Lock()
	p.attempts++
	attempt := p.attempts
	p.mu.Unlock()

	h, err := p.connect(ctx)
	if err == nil && h == nil {
		err = errNilHandle
	}
	if p.observer != nil {
		p.observer(err)
	}
	if err != nil {
		p.logger.Error("failed to connect to warehouse",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil, connectionError("warehouse.Get", err)
	}

	p.logger.Info("warehouse connection established", zap.Int("attempt", attempt))
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()
	return h, nil
}

// Current returns the cached handle without attempting creation.
func (p *Provider) Current() (Handle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handle, p.handle != nil
}

// Ready reports whether a handle has been created.
func (p *Provider) Ready() bool {
	_, ok := p.Current()
	return ok
}

// Attempts returns the number of creation attempts made so far, including one
// still in progress.
func (p *Provider) Attempts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attempts
}

// Close releases the handle if one was created. The provider stays Ready; it is
// only called during shutdown.
func (p *Provider) Close() error {
	h, ok := p.Current()
	if !ok {
		return nil
	}
	return h.Close()
}
