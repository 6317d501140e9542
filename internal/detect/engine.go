package detect

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default confirmation parameters, matching the reference deployment:
// ten person detections within ten seconds confirm a sighting.
const (
	DefaultRequiredCount = 10
	DefaultWindow        = 10 * time.Second
	DefaultTrackedClass  = "person"
)

// Confirmation is the debounced signal that a tracked-class object has
// been reliably observed in one identity's stream.
type Confirmation struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	ObjectClass      string    `json:"objectClass"`
	TimestampInitial time.Time `json:"timestampInitial"`
	TimestampFinal   time.Time `json:"timestampFinal"`
}

// window accumulates one run of same-class detections for one identity.
type window struct {
	count int
	start time.Time
}

// Engine turns a noisy stream of per-frame classifications into
// confirmations. Only detections of the tracked class count; a
// confirmation fires when RequiredCount of them arrive within Window of
// the run's first detection.
type Engine struct {
	requiredCount int
	window        time.Duration
	trackedClass  string

	mu      sync.Mutex
	windows map[string]*window
}

func NewEngine(requiredCount int, windowDur time.Duration, trackedClass string) *Engine {
	if requiredCount <= 0 {
		requiredCount = DefaultRequiredCount
	}
	if windowDur <= 0 {
		windowDur = DefaultWindow
	}
	if trackedClass == "" {
		trackedClass = DefaultTrackedClass
	}
	return &Engine{
		requiredCount: requiredCount,
		window:        windowDur,
		trackedClass:  trackedClass,
		windows:       make(map[string]*window),
	}
}

func (e *Engine) TrackedClass() string { return e.trackedClass }

// Observe feeds one detection event into the engine and reports whether
// it confirmed a sighting. The window for the identity is deleted before
// the confirmation is returned, so a confirmation can never double-fire:
// the next tracked detection starts a fresh run.
func (e *Engine) Observe(userID, userName, objectClass string, now time.Time) (*Confirmation, bool) {
	if objectClass != e.trackedClass {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.windows[userID]
	if !ok {
		e.windows[userID] = &window{count: 1, start: now}
		return nil, false
	}

	w.count++
	elapsed := now.Sub(w.start)

	// Threshold before staleness: a detection that reaches the count
	// only after the window has lapsed does not confirm.
	if w.count >= e.requiredCount && elapsed <= e.window {
		delete(e.windows, userID)
		return &Confirmation{
			ID:               uuid.NewString(),
			UserID:           userID,
			UserName:         userName,
			ObjectClass:      objectClass,
			TimestampInitial: w.start,
			TimestampFinal:   now,
		}, true
	}

	if elapsed > e.window {
		// Stale run: the current detection starts a fresh one.
		w.count = 1
		w.start = now
	}

	return nil, false
}

// Forget drops any in-progress window for the identity. Called on
// disconnect so a user who leaves mid-run never confirms.
func (e *Engine) Forget(userID string) {
	e.mu.Lock()
	delete(e.windows, userID)
	e.mu.Unlock()
}

// Progress reports the current run for an identity: how many qualifying
// detections have accumulated and when the run started.
func (e *Engine) Progress(userID string) (count int, start time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, found := e.windows[userID]
	if !found {
		return 0, time.Time{}, false
	}
	return w.count, w.start, true
}
