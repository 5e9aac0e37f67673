package client

import (
	"math"
	"time"

	"wheelhouse/internal/game"
)

const (
	// FullRevolutions is the spin length an on-time joiner sees.
	FullRevolutions = 5
	// MinimumAnimationTime guarantees no client ever snaps straight to the
	// result, however late it joins.
	MinimumAnimationTime = 1 * time.Second
)

// SpinPlan is the ephemeral client-side animation program for one spin. It is
// derived purely from a snapshot and the local clock, and discarded when the
// spin id changes or the view is torn down.
type SpinPlan struct {
	SpinID            string
	TargetIndex       int
	Revolutions       int
	TotalDistance     float64 // wheel slots traveled, ending on TargetIndex
	StartProgress     float64
	RemainingDuration time.Duration
	StartedAtLocal    time.Time
}

// ComputeSpinPlan derives the animation for a possibly in-progress spin. The
// plan always lands on the server-declared outcome and always completes at
// materially the same wall-clock moment as every other client: a late joiner
// gets fewer revolutions and a shorter remaining duration, never a different
// target or a later finish.
//
// Returns false when the snapshot carries no animatable spin (pure BETTING or
// LOCKED phase, or a crash table).
func ComputeSpinPlan(snap game.Snapshot, now time.Time) (SpinPlan, bool) {
	if snap.SpinID == "" || snap.TargetIndex == nil || snap.PatternLength == 0 {
		return SpinPlan{}, false
	}
	if snap.Phase != game.PhaseResolving && snap.Phase != game.PhaseShowingResult {
		return SpinPlan{}, false
	}

	total := time.Duration(snap.SpinDurationMs) * time.Millisecond
	if total <= 0 {
		return SpinPlan{}, false
	}

	elapsed := now.Sub(snap.SpinStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	lateJoinRatio := float64(elapsed) / float64(total)

	// Proportionally fewer full revolutions the later the join, floor one,
	// so the catch-up never looks unrealistically fast.
	revolutions := int(math.Round(float64(FullRevolutions) * (1 - lateJoinRatio)))
	if revolutions < 1 {
		revolutions = 1
	}

	remaining := total - elapsed
	if remaining < MinimumAnimationTime {
		remaining = MinimumAnimationTime
	}

	return SpinPlan{
		SpinID:            snap.SpinID,
		TargetIndex:       *snap.TargetIndex,
		Revolutions:       revolutions,
		TotalDistance:     float64(revolutions*snap.PatternLength + *snap.TargetIndex),
		StartProgress:     lateJoinRatio,
		RemainingDuration: remaining,
		StartedAtLocal:    now,
	}, true
}

// CompletesAt is the local wall-clock moment the animation lands.
func (p SpinPlan) CompletesAt() time.Time {
	return p.StartedAtLocal.Add(p.RemainingDuration)
}

// Position returns the wheel distance traveled after sinceStart of local
// animation time: an ease-out quartic from StartProgress to 1 over
// RemainingDuration, scaled to TotalDistance. At completion it is exactly
// TotalDistance, which is the target slot.
func (p SpinPlan) Position(sinceStart time.Duration) float64 {
	u := float64(sinceStart) / float64(p.RemainingDuration)
	if u < 0 {
		u = 0
	}
	if u >= 1 {
		return p.TotalDistance
	}
	progress := p.StartProgress + (1-p.StartProgress)*easeOutQuart(u)
	return p.TotalDistance * progress
}

// Done reports whether the animation has landed.
func (p SpinPlan) Done(now time.Time) bool {
	return !now.Before(p.CompletesAt())
}

func easeOutQuart(u float64) float64 {
	v := 1 - u
	return 1 - v*v*v*v
}
