// Package aggregate folds a stream session's stage events into a live
// processing log and an accumulating answer draft, and finalizes the
// draft into an immutable answer when the stream completes.
package aggregate

import (
	"log/slog"
	"sync"

	"github.com/lumin-ai/lens/internal/stream"
)

// Draft is the in-progress fold of every stage-event field received so
// far. Per field, a later event's value replaces an earlier one; an
// absent field never clears a present one. Mutable only within one
// stream's lifetime.
type Draft struct {
	Answer            *string
	SQLQuery          *string
	SQLValid          *bool
	ParsedQuestion    *stream.ParsedQuestion
	VisualizationData []map[string]any
	Visualization     *string
}

func (d *Draft) fold(ev stream.StageEvent) {
	if ev.Answer != nil {
		d.Answer = ev.Answer
	}
	if ev.SQLQuery != nil {
		d.SQLQuery = ev.SQLQuery
	}
	if ev.SQLValid != nil {
		d.SQLValid = ev.SQLValid
	}
	if ev.ParsedQuestion != nil {
		d.ParsedQuestion = ev.ParsedQuestion
	}
	if ev.VisualizationData != nil {
		d.VisualizationData = ev.VisualizationData
	}
	if ev.Visualization != nil {
		d.Visualization = ev.Visualization
	}
}

// Aggregator folds stage events for the current stream session. Session
// identity is an explicit monotonically increasing counter: events are
// folded only when they carry the current counter value, so a stale
// session's stragglers can never touch shared state.
type Aggregator struct {
	logger *slog.Logger

	mu       sync.Mutex
	session  uint64
	received []stream.StageEvent
	draft    Draft
	lastErr  error
}

func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Start begins a new session: the counter advances, the processing log
// and draft reset, and any still-streaming prior session is superseded.
// The returned token must accompany every Observe/Finish call for this
// session.
func (a *Aggregator) Start() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session++
	a.received = nil
	a.draft = Draft{}
	a.lastErr = nil
	return a.session
}

// Observe appends the event to the processing log and folds its present
// fields into the draft. Events from a superseded session are dropped;
// the return value reports whether the event was accepted.
func (a *Aggregator) Observe(session uint64, ev stream.StageEvent) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if session != a.session {
		a.logger.Debug("dropping stage event from superseded session",
			"event_session", session, "current_session", a.session)
		return false
	}
	a.received = append(a.received, ev)
	if ev.Empty() {
		// Still counts as received, just contributes nothing.
		a.logger.Debug("stage event carried no recognised fields", "session", session)
		return true
	}
	a.draft.fold(ev)
	return true
}

// Outcome classifies how a session's stream ended.
type Outcome int

const (
	// Completed: success terminal for the current session; the
	// returned draft is ready for assembly.
	Completed Outcome = iota
	// Failed: failure terminal for the current session; the draft is
	// left un-finalized and the error is retained next to the
	// processing log for display.
	Failed
	// Superseded: terminal from a stale session; ignored entirely.
	Superseded
)

// Finish records the terminal outcome for a session.
func (a *Aggregator) Finish(session uint64, streamErr error) (Draft, Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if session != a.session {
		return Draft{}, Superseded
	}
	if streamErr != nil {
		a.lastErr = streamErr
		return Draft{}, Failed
	}
	return a.draft, Completed
}

// Snapshot returns the events received so far in the current session,
// in arrival order, plus the last stream failure if any. After a failed
// stream the accumulated log stays inspectable for diagnostics.
func (a *Aggregator) Snapshot() ([]stream.StageEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]stream.StageEvent, len(a.received))
	copy(out, a.received)
	return out, a.lastErr
}
