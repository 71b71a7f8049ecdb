/**
 * @description
 * Campaign progress: the aggregate donation total shown on the landing
 * page. Reads degrade to the last known total so the marketing surface
 * stays up while the backend is down.
 */
package app

import (
	"context"
	"log/slog"
	"sync"
)

// ProgressBackend is the slice of the backend API the progress reader needs.
type ProgressBackend interface {
	TotalDonations(ctx context.Context) (float64, error)
}

// Progress caches the most recently fetched campaign total.
type Progress struct {
	backend ProgressBackend
	logger  *slog.Logger

	mu        sync.Mutex
	lastTotal float64
}

// NewProgress creates a Progress reader.
func NewProgress(backend ProgressBackend, logger *slog.Logger) *Progress {
	return &Progress{backend: backend, logger: logger}
}

// Total returns the campaign total. The bool reports whether the value is
// fresh; on a failed fetch the last known total is returned instead.
func (p *Progress) Total(ctx context.Context) (float64, bool) {
	total, err := p.backend.TotalDonations(ctx)
	if err != nil {
		p.logger.Warn("total donations fetch failed", "error", err)
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.lastTotal, false
	}

	p.mu.Lock()
	p.lastTotal = total
	p.mu.Unlock()
	return total, true
}
