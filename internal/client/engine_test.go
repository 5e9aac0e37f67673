package client

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"wheelhouse/internal/game"
)

func TestSpinRegistry_AtMostOnce(t *testing.T) {
	r := NewSpinRegistry()

	if !r.Begin("spin-1") {
		t.Error("first Begin(spin-1) = false, want true")
	}
	if r.Begin("spin-1") {
		t.Error("second Begin(spin-1) = true, want false")
	}
	if !r.Begin("spin-2") {
		t.Error("Begin(spin-2) = false, want true")
	}
}

func TestSpinRegistry_BoundedMemory(t *testing.T) {
	r := NewSpinRegistry()

	// A client that stays connected across many rounds must not accumulate
	// one entry per spin forever.
	for i := 0; i < spinMemory*10; i++ {
		r.Begin("spin-" + strconv.Itoa(i))
	}
	if len(r.seen) > spinMemory || len(r.order) > spinMemory {
		t.Errorf("registry holds %d ids, want at most %d", len(r.seen), spinMemory)
	}

	// The most recent spin is still guarded.
	if !r.Begin("spin-latest") {
		t.Fatal("Begin(spin-latest) = false, want true")
	}
	if r.Begin("spin-latest") {
		t.Error("duplicate Begin(spin-latest) = true, want false")
	}
}

func TestSyncEngine_DuplicateSnapshotPlaysOnce(t *testing.T) {
	var frames int64
	animator := NewAnimator(func(float64) { atomic.AddInt64(&frames, 1) }, nil)
	engine := NewSyncEngine(animator)
	defer engine.Teardown()

	start := time.Now()
	snap := spinSnapshot(start)

	if !engine.HandleSnapshot(snap, start) {
		t.Fatal("first snapshot did not start an animation")
	}
	// Duplicate delivery after a reconnect must not replay.
	if engine.HandleSnapshot(snap, start.Add(100*time.Millisecond)) {
		t.Error("duplicate snapshot started a second animation")
	}
}

func TestSyncEngine_IgnoresBettingSnapshots(t *testing.T) {
	animator := NewAnimator(nil, nil)
	engine := NewSyncEngine(animator)
	defer engine.Teardown()

	snap := game.Snapshot{
		Table:            "wheel-main",
		Phase:            game.PhaseBetting,
		BettingRemaining: 3000,
		PatternLength:    54,
	}
	if engine.HandleSnapshot(snap, time.Now()) {
		t.Error("BETTING snapshot started an animation")
	}
}

func TestSyncEngine_NewSpinAfterOldOne(t *testing.T) {
	animator := NewAnimator(nil, nil)
	engine := NewSyncEngine(animator)
	defer engine.Teardown()

	start := time.Now()
	first := spinSnapshot(start)
	if !engine.HandleSnapshot(first, start) {
		t.Fatal("first spin did not start")
	}

	second := spinSnapshot(start.Add(10 * time.Second))
	second.SpinID = "spin-2"
	second.RoundID = "round-2"
	if !engine.HandleSnapshot(second, start.Add(10*time.Second)) {
		t.Error("new spin id did not start an animation")
	}
}

func TestAnimator_RunsToCompletion(t *testing.T) {
	var frames int64
	done := make(chan string, 1)
	animator := NewAnimator(
		func(float64) { atomic.AddInt64(&frames, 1) },
		func(spinID string) { done <- spinID },
	)

	plan := SpinPlan{
		SpinID:            "spin-done",
		TargetIndex:       3,
		Revolutions:       1,
		TotalDistance:     57,
		RemainingDuration: 100 * time.Millisecond,
		StartedAtLocal:    time.Now(),
	}
	animator.Play(plan)

	select {
	case spinID := <-done:
		if spinID != "spin-done" {
			t.Errorf("completion for spin %s, want spin-done", spinID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("animation never completed")
	}

	if atomic.LoadInt64(&frames) == 0 {
		t.Error("animation completed without rendering any frame")
	}
}

func TestAnimator_StopCancels(t *testing.T) {
	done := make(chan string, 1)
	animator := NewAnimator(nil, func(spinID string) { done <- spinID })

	plan := SpinPlan{
		SpinID:            "spin-cancel",
		TotalDistance:     54,
		RemainingDuration: 5 * time.Second,
		StartedAtLocal:    time.Now(),
	}
	animator.Play(plan)
	animator.Stop()

	select {
	case <-done:
		t.Error("cancelled animation reported completion")
	case <-time.After(100 * time.Millisecond):
	}
}
