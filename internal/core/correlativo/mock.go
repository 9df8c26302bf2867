package correlativo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, cfg Config, period time.Time) (string, error)
	SetNextFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error

	mu       sync.Mutex
	counters map[string]int64
}

// Next implements Generator. Without NextFunc it counts per prefix,
// formatting numbers the same way the real implementation does.
func (m *MockGenerator) Next(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.Prefix]++
	pad := cfg.PadWidth
	if pad == 0 {
		pad = 5
	}
	return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), pad, m.counters[cfg.Prefix]), nil
}

// SetNext implements Generator. Without SetNextFunc it rewinds the
// per-prefix counter so the next number issued is value.
func (m *MockGenerator) SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextFunc != nil {
		return m.SetNextFunc(ctx, cfg, period, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.Prefix] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
