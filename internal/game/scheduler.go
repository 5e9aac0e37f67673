package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wheelhouse/internal/fair"
)

const (
	betQueueSize      = 1000
	betAdmitTimeout   = 5 * time.Second
	seedRetryDelay    = 1 * time.Second
	redisKeyRound     = "wheelhouse:round:"
	roundCacheTTL     = 1 * time.Hour
	defaultHistoryCap = 100
)

// TableConfig fixes the clock and limits of one table. All durations are
// server-authoritative; clients only ever receive derived remaining times.
type TableConfig struct {
	Name               string
	Kind               Kind
	BettingWindow      time.Duration
	SpinDuration       time.Duration
	ShowResultDuration time.Duration
	MinBet             float64
	HistoryCapacity    int
	SnapshotRounds     int // previous rounds included in each snapshot
	StatsWindow        int
}

// Broadcaster pushes a payload to every subscriber of a table.
type Broadcaster interface {
	Broadcast(table string, payload interface{})
}

// Archive persists resolved rounds durably; the live engine only needs it for
// offline verification of evicted history.
type Archive interface {
	ArchiveRound(ctx context.Context, round Round, serverSeed string, bets []Bet) error
}

// RoundCache mirrors the live snapshot into Redis so a restarted API node can
// serve state before its scheduler produces the next phase change.
type RoundCache struct {
	client *redis.Client
}

func NewRoundCache(client *redis.Client) *RoundCache {
	return &RoundCache{client: client}
}

func (rc *RoundCache) Store(ctx context.Context, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	rc.client.Set(ctx, redisKeyRound+snap.Table, data, roundCacheTTL)
}

// Scheduler owns the phase clock for one table. It is a single sequential
// actor: every admission and every transition for the table runs on the
// scheduler goroutine, so settlement can never race bet admission. Tables run
// independently of each other.
type Scheduler struct {
	cfg       TableConfig
	committer *fair.Committer
	ledger    *Ledger
	history   *HistoryStore
	bcast     Broadcaster
	archive   Archive
	cache     *RoundCache

	ctx    context.Context
	betCh  chan BetRequest
	stopCh chan struct{}
	nonce  int

	mu      sync.RWMutex
	current *Round
}

func NewScheduler(cfg TableConfig, ledger *Ledger, bcast Broadcaster, archive Archive, cache *RoundCache) *Scheduler {
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = defaultHistoryCap
	}
	if cfg.SnapshotRounds <= 0 {
		cfg.SnapshotRounds = 10
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = cfg.HistoryCapacity
	}
	return &Scheduler{
		cfg:       cfg,
		committer: fair.NewCommitter(),
		ledger:    ledger,
		history:   NewHistoryStore(cfg.HistoryCapacity),
		bcast:     bcast,
		archive:   archive,
		cache:     cache,
		ctx:       context.Background(),
		betCh:     make(chan BetRequest, betQueueSize),
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Table() string { return s.cfg.Name }

func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) loop() {
	for {
		select {
		case <-s.stopCh:
			log.Printf("[SCHED] %s: loop stopped", s.cfg.Name)
			return
		default:
			s.runRound()
		}
	}
}

// PlaceBet funnels an admission attempt through the scheduler actor and waits
// for its verdict.
func (s *Scheduler) PlaceBet(userID string, amount float64, selection string) BetResponse {
	respChan := make(chan BetResponse, 1)
	req := BetRequest{
		UserID:       userID,
		Amount:       amount,
		Selection:    selection,
		ResponseChan: respChan,
	}

	select {
	case s.betCh <- req:
		select {
		case resp := <-respChan:
			return resp
		case <-time.After(betAdmitTimeout):
			return BetResponse{Err: fmt.Errorf("bet admission timeout")}
		}
	default:
		return BetResponse{Err: fmt.Errorf("bet queue full")}
	}
}

// Snapshot returns the current immutable view of the table.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildSnapshotLocked(time.Now())
}

// History exposes the table's resolved-round ring for trend endpoints.
func (s *Scheduler) History() *HistoryStore { return s.history }

func (s *Scheduler) runRound() {
	s.nonce++

	roundID := uuid.NewString()
	commit, err := s.committer.BeginRound(roundID)
	if err != nil {
		// Entropy failure is fatal to this round only: it never opens for
		// betting, and the scheduler retries with a fresh attempt.
		log.Printf("[SCHED] %s: fairness commitment failed, round not opened: %v", s.cfg.Name, err)
		s.sleep(seedRetryDelay)
		return
	}
	clientSeed, err := fair.GenerateSeed()
	if err != nil {
		s.committer.Discard(roundID)
		log.Printf("[SCHED] %s: client seed generation failed, round not opened: %v", s.cfg.Name, err)
		s.sleep(seedRetryDelay)
		return
	}

	now := time.Now()
	round := &Round{
		ID:             roundID,
		Table:          s.cfg.Name,
		Kind:           s.cfg.Kind,
		Phase:          PhaseBetting,
		ServerSeedHash: commit.ServerSeedHash,
		ClientSeed:     clientSeed,
		Nonce:          s.nonce,
		BettingWindow:  s.cfg.BettingWindow,
		PhaseStartedAt: now,
	}

	s.mu.Lock()
	s.current = round
	s.mu.Unlock()

	log.Printf("[SCHED] %s: round %s open, commitment %s...", s.cfg.Name, roundID, commit.ServerSeedHash[:16])
	s.publish()

	// BETTING: admit bets until the window closes.
	if !s.waitPhase(s.cfg.BettingWindow) {
		return
	}

	// LOCKED: the bet set is frozen before any outcome math runs.
	s.transition(PhaseLocked)
	s.publish()

	// RESOLVING: derive, resolve, settle, record. The outcome is computed
	// here and only here.
	value := fair.DeriveValue(commit.ServerSeed, clientSeed, s.nonce)
	outcome := Resolve(s.cfg.Kind, value)
	spinID := uuid.NewString()

	s.mu.Lock()
	round.Phase = PhaseResolving
	round.PhaseStartedAt = time.Now()
	round.Outcome = &outcome
	round.SpinID = spinID
	round.SpinStartedAt = round.PhaseStartedAt
	s.mu.Unlock()

	settled, err := s.ledger.Settle(s.ctx, round, outcome)
	if err != nil {
		log.Printf("[SCHED] %s: settlement failed, voiding round %s: %v", s.cfg.Name, roundID, err)
		s.failRound(round)
		return
	}

	entry := HistoryEntry{RoundID: roundID, Outcome: outcome, ResolvedAt: time.Now()}
	s.history.Append(entry)

	// The outcome is committed; the seed may now be revealed.
	seed, err := s.committer.Reveal(roundID, true)
	if err != nil {
		// Settlement already happened; treat a missing seed as an audit
		// defect but keep the round flowing.
		log.Printf("[SCHED] %s: seed reveal failed for round %s: %v", s.cfg.Name, roundID, err)
	}

	s.mu.Lock()
	round.ServerSeed = seed
	s.mu.Unlock()

	if s.archive != nil {
		bets := s.ledger.BetsForRound(roundID)
		if err := s.archive.ArchiveRound(s.ctx, *round, seed, bets); err != nil {
			log.Printf("[SCHED] %s: archive failed for round %s: %v", s.cfg.Name, roundID, err)
		}
	}

	log.Printf("[SCHED] %s: round %s resolved %s, %d bets settled", s.cfg.Name, roundID, outcome.Category(), len(settled))
	s.publish()

	// Clients animate toward the outcome for the spin duration.
	if !s.waitPhase(s.cfg.SpinDuration) {
		return
	}

	s.transition(PhaseShowingResult)
	s.publish()

	if !s.waitPhase(s.cfg.ShowResultDuration) {
		return
	}

	s.ledger.Forget(roundID)
}

// failRound moves a round that cannot resolve into the terminal ERROR phase:
// every pending bet is voided and refunded, and the seed is discarded.
func (s *Scheduler) failRound(round *Round) {
	s.transition(PhaseError)
	if _, err := s.ledger.Void(s.ctx, round); err != nil {
		log.Printf("[SCHED] %s: void failed for round %s: %v", s.cfg.Name, round.ID, err)
	}
	s.committer.Discard(round.ID)
	s.publish()
	s.waitPhase(s.cfg.ShowResultDuration)
	s.ledger.Forget(round.ID)
}

func (s *Scheduler) transition(phase Phase) {
	s.mu.Lock()
	s.current.Phase = phase
	s.current.PhaseStartedAt = time.Now()
	s.mu.Unlock()
}

// waitPhase services the bet channel for the given duration. Admission during
// non-BETTING phases is rejected synchronously by the ledger, so callers get
// their PHASE_CLOSED verdict immediately instead of queueing into the next
// round. Returns false when the scheduler is stopping.
func (s *Scheduler) waitPhase(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return true
		case req := <-s.betCh:
			s.admit(req)
		case <-s.stopCh:
			return false
		}
	}
}

func (s *Scheduler) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-s.stopCh:
	}
}

func (s *Scheduler) admit(req BetRequest) {
	s.mu.RLock()
	round := s.current
	s.mu.RUnlock()

	bet, balance, err := s.ledger.PlaceBet(s.ctx, round, req.UserID, req.Amount, req.Selection)
	resp := BetResponse{Bet: bet, Balance: balance, Err: err}
	if req.ResponseChan != nil {
		req.ResponseChan <- resp
	}
	if err == nil {
		log.Printf("[SCHED] %s: user %s bet %.2f on %s", s.cfg.Name, req.UserID, req.Amount, req.Selection)
		s.bcast.Broadcast(s.cfg.Name, map[string]interface{}{
			"type": "bet_placed",
			"data": map[string]interface{}{
				"bet_id":  bet.ID,
				"user_id": bet.UserID,
				"amount":  bet.Amount,
			},
		})
	}
}

// publish broadcasts the current snapshot and mirrors it into the cache.
func (s *Scheduler) publish() {
	snap := s.Snapshot()
	s.bcast.Broadcast(s.cfg.Name, map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	})
	if s.cache != nil {
		s.cache.Store(s.ctx, snap)
	}
}

func (s *Scheduler) buildSnapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		Table:          s.cfg.Name,
		Kind:           s.cfg.Kind,
		SpinDurationMs: s.cfg.SpinDuration.Milliseconds(),
		PreviousRounds: s.history.Last(s.cfg.SnapshotRounds),
		Stats:          s.history.StatsOverLast(s.cfg.StatsWindow),
		GeneratedAt:    now,
	}
	if s.cfg.Kind == KindWheel {
		snap.PatternLength = PatternLength
	}
	if last, ok := s.history.Latest(); ok {
		snap.LastResult = &last
	}

	round := s.current
	if round == nil {
		return snap
	}

	snap.RoundID = round.ID
	snap.Phase = round.Phase
	snap.ServerSeedHash = round.ServerSeedHash
	snap.ClientSeed = round.ClientSeed
	snap.Nonce = round.Nonce

	if round.Phase == PhaseBetting {
		remaining := round.BettingWindow - now.Sub(round.PhaseStartedAt)
		if remaining < 0 {
			remaining = 0
		}
		snap.BettingRemaining = remaining.Milliseconds()
	}

	if round.Outcome != nil {
		snap.SpinID = round.SpinID
		snap.SpinStartedAt = round.SpinStartedAt
		if round.Kind == KindWheel {
			idx := round.Outcome.WheelIndex
			snap.TargetIndex = &idx
		} else {
			mult := round.Outcome.Multiplier
			snap.CrashMultiplier = &mult
		}
	}

	// The seed is only present after reveal, which only happens after the
	// outcome is committed.
	snap.ServerSeed = round.ServerSeed

	return snap
}
