package client

import (
	"sync"
	"time"

	"wheelhouse/internal/game"
)

const (
	frameInterval = 16 * time.Millisecond

	// spinMemory bounds the registry on long-lived clients. Duplicate
	// delivery only ever concerns recent spins; a stale snapshot older than
	// this window describes rounds long since shown.
	spinMemory = 8
)

// SpinRegistry remembers which recent spin ids have already been played so a
// duplicate snapshot (reconnect, redelivery) never replays an animation.
type SpinRegistry struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

func NewSpinRegistry() *SpinRegistry {
	return &SpinRegistry{seen: make(map[string]bool)}
}

// Begin marks a spin id as processed and reports whether this call was the
// first. Marking happens before playback starts, which is what makes playback
// at-most-once even under duplicate delivery. The oldest id is forgotten once
// more than spinMemory spins have been seen.
func (r *SpinRegistry) Begin(spinID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[spinID] {
		return false
	}
	r.seen[spinID] = true
	r.order = append(r.order, spinID)
	if len(r.order) > spinMemory {
		delete(r.seen, r.order[0])
		r.order = r.order[1:]
	}
	return true
}

// Animator is the thin rendering driver over a SpinPlan: a cooperative
// per-frame loop that is cancelled and restarted whenever a new spin plan
// arrives or the view is torn down. All outcome math lives in the plan.
type Animator struct {
	mu      sync.Mutex
	cancel  chan struct{}
	onFrame func(position float64)
	onDone  func(spinID string)
}

func NewAnimator(onFrame func(position float64), onDone func(spinID string)) *Animator {
	return &Animator{onFrame: onFrame, onDone: onDone}
}

// Play cancels any running animation and drives the new plan to completion.
func (a *Animator) Play(plan SpinPlan) {
	a.mu.Lock()
	if a.cancel != nil {
		close(a.cancel)
	}
	cancel := make(chan struct{})
	a.cancel = cancel
	a.mu.Unlock()

	go a.run(plan, cancel)
}

// Stop cancels the running animation, if any.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		close(a.cancel)
		a.cancel = nil
	}
}

func (a *Animator) run(plan SpinPlan, cancel chan struct{}) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			since := now.Sub(plan.StartedAtLocal)
			if a.onFrame != nil {
				a.onFrame(plan.Position(since))
			}
			if since >= plan.RemainingDuration {
				if a.onDone != nil {
					a.onDone(plan.SpinID)
				}
				return
			}
		}
	}
}

// SyncEngine converges a client on the server's outcome from snapshots alone.
// A snapshot may describe a round already in progress; the engine computes a
// late-join plan for it, plays it at most once per spin id, and ignores
// anything it has already seen. Desync is self-healing: the next snapshot is
// always sufficient to resume, so no message replay is ever needed.
type SyncEngine struct {
	registry *SpinRegistry
	animator *Animator
}

func NewSyncEngine(animator *Animator) *SyncEngine {
	return &SyncEngine{
		registry: NewSpinRegistry(),
		animator: animator,
	}
}

// HandleSnapshot processes one snapshot, starting the spin animation when the
// snapshot carries a spin this client has not played yet. Returns true when
// an animation was started. BETTING snapshots run no animation; the caller
// simply displays the countdown from BettingRemaining.
func (e *SyncEngine) HandleSnapshot(snap game.Snapshot, now time.Time) bool {
	plan, ok := ComputeSpinPlan(snap, now)
	if !ok {
		return false
	}
	if !e.registry.Begin(plan.SpinID) {
		return false
	}
	e.animator.Play(plan)
	return true
}

// Teardown cancels any in-flight animation.
func (e *SyncEngine) Teardown() {
	e.animator.Stop()
}
