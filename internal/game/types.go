package game

import (
	"errors"
	"time"
)

// Phase is the authoritative round phase, owned by the table scheduler.
type Phase string

const (
	PhaseBetting       Phase = "BETTING"
	PhaseLocked        Phase = "LOCKED"
	PhaseResolving     Phase = "RESOLVING"
	PhaseShowingResult Phase = "SHOWING_RESULT"
	PhaseError         Phase = "ERROR"
)

// Kind selects the outcome mapping for a table.
type Kind string

const (
	KindWheel Kind = "wheel"
	KindCrash Kind = "crash"
)

// Admission errors. Reported synchronously to the caller; the round and the
// caller's balance are left untouched.
var (
	ErrPhaseClosed         = errors.New("betting is closed for this round")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("bet amount below table minimum")
	ErrUnknownSelection    = errors.New("unknown selection")
)

// ErrorCode maps an admission error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPhaseClosed):
		return "PHASE_CLOSED"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrBelowMinimum):
		return "BELOW_MINIMUM"
	case errors.Is(err, ErrUnknownSelection):
		return "UNKNOWN_SELECTION"
	default:
		return "INTERNAL"
	}
}

// Outcome is the resolved result of a round. WheelIndex/Color are set for
// wheel tables, Multiplier for crash tables. Set exactly once, during the
// RESOLVING transition, and never mutated afterward.
type Outcome struct {
	Kind       Kind    `json:"kind"`
	WheelIndex int     `json:"wheel_index,omitempty"`
	Color      Color   `json:"color,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// Category buckets an outcome for rolling history stats.
func (o Outcome) Category() string {
	if o.Kind == KindWheel {
		return string(o.Color)
	}
	switch {
	case o.Multiplier < 2.0:
		return "low"
	case o.Multiplier < 10.0:
		return "mid"
	default:
		return "high"
	}
}

// Round is one complete betting/resolution cycle on a table.
type Round struct {
	ID             string        `json:"round_id"`
	Table          string        `json:"table"`
	Kind           Kind          `json:"kind"`
	Phase          Phase         `json:"phase"`
	ServerSeed     string        `json:"-"` // held by the committer until reveal
	ServerSeedHash string        `json:"server_seed_hash"`
	ClientSeed     string        `json:"client_seed"`
	Nonce          int           `json:"nonce"`
	BettingWindow  time.Duration `json:"-"`
	PhaseStartedAt time.Time     `json:"phase_started_at"`
	Outcome        *Outcome      `json:"outcome,omitempty"`
	SpinID         string        `json:"spin_id,omitempty"`
	SpinStartedAt  time.Time     `json:"spin_started_at,omitempty"`
}

type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
	BetVoided  BetStatus = "VOIDED"
)

// Bet is created during BETTING and mutated exactly once at settlement.
type Bet struct {
	ID        string    `json:"bet_id"`
	RoundID   string    `json:"round_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Selection string    `json:"selection"`
	Status    BetStatus `json:"status"`
	Payout    float64   `json:"payout"`
	PlacedAt  time.Time `json:"placed_at"`
}

// SettledBet is the settlement record for one bet.
type SettledBet struct {
	BetID  string    `json:"bet_id"`
	UserID string    `json:"user_id"`
	Status BetStatus `json:"status"`
	Payout float64   `json:"payout"`
}

// HistoryEntry records one resolved round.
type HistoryEntry struct {
	RoundID    string    `json:"round_id"`
	Outcome    Outcome   `json:"outcome"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Snapshot is the immutable per-phase state pushed to clients and served to
// late joiners. ServerSeed is populated only once the round it belongs to has
// been resolved.
type Snapshot struct {
	Table            string         `json:"table"`
	Kind             Kind           `json:"kind"`
	RoundID          string         `json:"round_id"`
	Phase            Phase          `json:"phase"`
	ServerSeedHash   string         `json:"server_seed_hash"`
	SpinID           string         `json:"spin_id,omitempty"`
	TargetIndex      *int           `json:"target_outcome_index,omitempty"`
	CrashMultiplier  *float64       `json:"crash_multiplier,omitempty"`
	SpinStartedAt    time.Time      `json:"spin_started_at,omitempty"`
	SpinDurationMs   int64          `json:"spin_duration_ms"`
	BettingRemaining int64          `json:"betting_time_remaining_ms"`
	LastResult       *HistoryEntry  `json:"last_result,omitempty"`
	PreviousRounds   []HistoryEntry `json:"previous_rounds"`
	Stats            map[string]int `json:"stats_last_n"`
	ServerSeed       string         `json:"server_seed,omitempty"`
	ClientSeed       string         `json:"client_seed,omitempty"`
	Nonce            int            `json:"nonce,omitempty"`
	PatternLength    int            `json:"pattern_length"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// BetRequest funnels an admission attempt into the table scheduler.
type BetRequest struct {
	UserID       string           `json:"user_id"`
	Amount       float64          `json:"amount"`
	Selection    string           `json:"selection"`
	ResponseChan chan BetResponse `json:"-"`
}

type BetResponse struct {
	Bet     *Bet    `json:"bet,omitempty"`
	Balance float64 `json:"balance"`
	Err     error   `json:"-"`
}
