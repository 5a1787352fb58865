// Package notify carries the post-commit view invalidation signal. The
// server itself renders nothing; it only announces which views went stale.
package notify

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/medlogbook/internal/logging"
)

// View names a consumer-side view whose cached content depends on entries.
type View string

const (
	ViewOwnEntries    View = "own-entries"
	ViewReviewQueue   View = "review-queue"
	ViewBulkSignQueue View = "bulk-sign-queue"
	ViewSignatures    View = "signatures"
	ViewAutoReview    View = "auto-review-settings"
)

// EntryViews is the fixed set every entry mutation invalidates.
var EntryViews = []View{ViewOwnEntries, ViewReviewQueue, ViewBulkSignQueue}

// SignedViews is the set invalidated when a signature was written.
var SignedViews = []View{ViewOwnEntries, ViewReviewQueue, ViewBulkSignQueue, ViewSignatures}

// Notifier is called after every successful commit of a mutating operation.
type Notifier interface {
	Notify(ctx context.Context, views ...View)
}

// LogNotifier writes each notification to the structured log.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, views ...View) {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = string(v)
	}
	n.log.Debug(ctx, "views invalidated", "views", names)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	calls [][]View
}

func (r *Recorder) Notify(_ context.Context, views ...View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]View(nil), views...))
}

// Calls returns a copy of the recorded notifications in call order.
func (r *Recorder) Calls() [][]View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]View, len(r.calls))
	copy(out, r.calls)
	return out
}
