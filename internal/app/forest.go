/**
 * @description
 * The forest map synchronizer. It keeps a locally rendered set of tree
 * markers in step with the backend registry by polling on a fixed interval,
 * replacing the snapshot wholesale on every successful non-empty fetch.
 * When the backend is unreachable or empty it falls back to a locally
 * generated placeholder forest, which is flagged as such and never
 * persisted or mistaken for server truth.
 *
 * Consistency model: read-your-writes is NOT guaranteed. A tree planted on
 * the personalization page becomes visible here on the next poll tick.
 */
package app

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/MagicForestApp/donate-hub/internal/domain"
)

// PollInterval is how often the synchronizer reconciles with the backend.
const PollInterval = 2 * time.Second

// reconcileTimeout bounds one fetch so a slow round trip cannot overlap
// the next tick.
const reconcileTimeout = 1500 * time.Millisecond

// placeholderCount is the size of the locally generated fallback forest.
const placeholderCount = 25

// TreeLister is the slice of the backend API the synchronizer needs.
type TreeLister interface {
	ListTrees(ctx context.Context) ([]domain.TreeMarker, error)
}

// Forest owns the rendered snapshot of the shared tree map and the single
// selected marker, if any.
type Forest struct {
	backend  TreeLister
	logger   *slog.Logger
	interval time.Duration
	rng      *rand.Rand

	mu          sync.RWMutex
	markers     []domain.TreeMarker
	placeholder bool
	haveReal    bool
	selectedID  string
}

// NewForest creates a synchronizer. Run must be called for the snapshot to
// start tracking the backend.
func NewForest(backend TreeLister, logger *slog.Logger) *Forest {
	return &Forest{
		backend:  backend,
		logger:   logger,
		interval: PollInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run reconciles immediately, then on every tick until ctx is cancelled.
// The ticker is always released on return; no periodic work leaks past
// teardown.
func (f *Forest) Run(ctx context.Context) {
	f.Reconcile(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Reconcile(ctx)
		}
	}
}

// Reconcile performs one fetch-and-replace cycle against the backend.
func (f *Forest) Reconcile(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	trees, err := f.backend.ListTrees(fetchCtx)
	if err == nil && len(trees) > 0 {
		f.install(trees)
		return
	}
	if err != nil {
		f.logger.Warn("tree fetch failed, keeping fallback view", "error", err)
	}
	f.degrade()
}

// install replaces the snapshot with freshly fetched markers, defaulting
// any missing sizes.
func (f *Forest) install(trees []domain.TreeMarker) {
	markers := make([]domain.TreeMarker, len(trees))
	copy(markers, trees)
	for i := range markers {
		if markers[i].Size == 0 {
			markers[i].Size = f.sizeFor(markers[i].ID)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers = markers
	f.placeholder = false
	f.haveReal = true
}

// degrade handles an empty or failed fetch: the last non-empty snapshot
// stays if one exists, otherwise the placeholder forest goes up.
func (f *Forest) degrade() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.haveReal {
		return
	}
	if !f.placeholder {
		f.markers = f.placeholderForest()
		f.placeholder = true
	}
}

// sizeFor draws a visual scale factor in [0.7, 1.2). Markers with an id get
// a deterministic draw seeded from the id, so repeated renders of the same
// marker are visually stable.
func (f *Forest) sizeFor(id string) float64 {
	if id == "" {
		return f.rng.Float64()*0.5 + 0.7
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	seeded := rand.New(rand.NewSource(int64(h.Sum64())))
	return seeded.Float64()*0.5 + 0.7
}

// placeholderForest generates the canned fallback markers, positioned
// within the canvas bounds minus the marker footprint, species cycled
// through the five types.
func (f *Forest) placeholderForest() []domain.TreeMarker {
	markers := make([]domain.TreeMarker, placeholderCount)
	for i := range markers {
		markers[i] = domain.TreeMarker{
			ID:      fmt.Sprintf("tree-%d", i),
			X:       f.rng.Float64() * (domain.MapWidth - domain.MarkerFootprint),
			Y:       f.rng.Float64() * (domain.MapHeight - domain.MarkerHeight),
			Species: domain.AllSpecies[i%len(domain.AllSpecies)],
			Donor:   fmt.Sprintf("Donor %d", i+1),
			Message: "This is my tree in the magic forest! Planting for a better future.",
			Size:    f.rng.Float64()*0.5 + 0.7,
		}
	}
	return markers
}

// Snapshot returns a copy of the rendered marker set.
func (f *Forest) Snapshot() domain.ForestSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	markers := make([]domain.TreeMarker, len(f.markers))
	copy(markers, f.markers)
	return domain.ForestSnapshot{Markers: markers, Placeholder: f.placeholder}
}

// Select marks the marker with the given id as the one open in the detail
// panel. Only one marker is selected at a time; selecting replaces any
// previous selection. Returns false when the id is not in the snapshot.
func (f *Forest) Select(id string) (domain.TreeMarker, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.markers {
		if m.ID == id {
			f.selectedID = id
			return m, true
		}
	}
	return domain.TreeMarker{}, false
}

// Deselect closes the detail panel.
func (f *Forest) Deselect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectedID = ""
}

// Selected returns the marker open in the detail panel, if it still exists
// in the current snapshot.
func (f *Forest) Selected() (domain.TreeMarker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.selectedID == "" {
		return domain.TreeMarker{}, false
	}
	for _, m := range f.markers {
		if m.ID == f.selectedID {
			return m, true
		}
	}
	return domain.TreeMarker{}, false
}
