package reconcile

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/domain/activity"
	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/domain/groups"
	"github.com/arcify/spaces/internal/domain/space"
	"github.com/arcify/spaces/internal/domain/titles"
	"github.com/arcify/spaces/internal/infrastructure/monitoring"
	"github.com/arcify/spaces/internal/shared/types"
)

// Guard names the non-reentrant sequence currently in flight. While a
// guard is held the tab-created handler is suppressed: tabs the engine
// opens itself are bookkept by their own call path and must not be
// double-processed.
type Guard int

const (
	GuardNone Guard = iota
	GuardCreatingSpace
	GuardOpeningBookmark
	GuardDraggingTab
)

// Reconciler owns the engine's event-driven state. It is the only
// writer of the guard state and the single dispatch point for host
// events.
type Reconciler struct {
	tabs     browser.Tabs
	adapter  *groups.Adapter
	folders  *bookmarks.Accessor
	registry *space.Manager
	titles   *titles.Manager
	tracker  *activity.Tracker
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	defaultName string

	guardMu sync.Mutex
	guard   Guard
}

// Config bundles the reconciler's collaborators.
type Config struct {
	Tabs        browser.Tabs
	Adapter     *groups.Adapter
	Folders     *bookmarks.Accessor
	Registry    *space.Manager
	Titles      *titles.Manager
	Tracker     *activity.Tracker
	DefaultName string
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
}

// New creates a reconciler.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.DefaultName
	if name == "" {
		name = "Default"
	}
	return &Reconciler{
		tabs:        cfg.Tabs,
		adapter:     cfg.Adapter,
		folders:     cfg.Folders,
		registry:    cfg.Registry,
		titles:      cfg.Titles,
		tracker:     cfg.Tracker,
		logger:      logger,
		metrics:     cfg.Metrics,
		defaultName: name,
	}
}

// Registry exposes the space registry for read surfaces.
func (r *Reconciler) Registry() *space.Manager { return r.registry }

// acquire takes the guard for one non-reentrant sequence. It returns
// a release func. Guards protect against self-triggered recursive
// events only; they are not a general lock.
func (r *Reconciler) acquire(g Guard) func() {
	r.guardMu.Lock()
	r.guard = g
	r.guardMu.Unlock()
	return func() {
		r.guardMu.Lock()
		r.guard = GuardNone
		r.guardMu.Unlock()
	}
}

func (r *Reconciler) guarded() bool {
	r.guardMu.Lock()
	defer r.guardMu.Unlock()
	return r.guard != GuardNone
}

// Run consumes the host event feed until the context is canceled or
// the feed closes.
func (r *Reconciler) Run(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Dispatch(ctx, ev)
		}
	}
}

func (r *Reconciler) countError(op string) {
	if r.metrics != nil {
		r.metrics.ReconcileErrors.WithLabelValues(op).Inc()
	}
}
