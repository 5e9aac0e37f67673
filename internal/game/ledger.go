package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyBalance = "wheelhouse:balance:"

// Wallet moves user funds by amount. Debit must fail without side effects
// when funds are unavailable.
type Wallet interface {
	Balance(ctx context.Context, userID string) (float64, error)
	Debit(ctx context.Context, userID string, amount float64) (float64, error)
	Credit(ctx context.Context, userID string, amount float64) (float64, error)
}

// RedisWallet keeps balances in Redis, debiting with IncrByFloat and rolling
// back when the balance would go negative.
type RedisWallet struct {
	client *redis.Client
}

func NewRedisWallet(client *redis.Client) *RedisWallet {
	return &RedisWallet{client: client}
}

func (w *RedisWallet) Balance(ctx context.Context, userID string) (float64, error) {
	balance, err := w.client.Get(ctx, redisKeyBalance+userID).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	return balance, err
}

func (w *RedisWallet) Debit(ctx context.Context, userID string, amount float64) (float64, error) {
	key := redisKeyBalance + userID
	newBalance, err := w.client.IncrByFloat(ctx, key, -amount).Result()
	if err != nil {
		return 0, err
	}
	if newBalance < 0 {
		w.client.IncrByFloat(ctx, key, amount) // rollback
		return newBalance + amount, ErrInsufficientBalance
	}
	return newBalance, nil
}

func (w *RedisWallet) Credit(ctx context.Context, userID string, amount float64) (float64, error) {
	return w.client.IncrByFloat(ctx, redisKeyBalance+userID, amount).Result()
}

func (w *RedisWallet) Set(ctx context.Context, userID string, amount float64) error {
	return w.client.Set(ctx, redisKeyBalance+userID, amount, 0).Err()
}

// Ledger gates bet admission by phase and balance and settles each round
// exactly once. Admission and settlement for a table are serialized by the
// scheduler actor; the mutex additionally guards the settled flag against
// duplicate external triggers.
type Ledger struct {
	wallet Wallet
	minBet float64

	mu      sync.Mutex
	bets    map[string][]*Bet        // roundID -> bets placed, frozen after BETTING
	settled map[string][]SettledBet  // roundID -> settlement record (idempotence guard)
}

func NewLedger(wallet Wallet, minBet float64) *Ledger {
	return &Ledger{
		wallet:  wallet,
		minBet:  minBet,
		bets:    make(map[string][]*Bet),
		settled: make(map[string][]SettledBet),
	}
}

// PlaceBet admits a bet against the round's phase and the caller's balance.
// The debit and the bet record are committed together: a failed debit leaves
// no bet, a failed validation leaves no debit.
func (l *Ledger) PlaceBet(ctx context.Context, round *Round, userID string, amount float64, selection string) (*Bet, float64, error) {
	if round == nil || round.Phase != PhaseBetting {
		return nil, 0, ErrPhaseClosed
	}
	if amount < l.minBet {
		return nil, 0, fmt.Errorf("%w: minimum is %.2f", ErrBelowMinimum, l.minBet)
	}
	if !ValidSelection(round.Kind, selection) {
		return nil, 0, ErrUnknownSelection
	}

	balance, err := l.wallet.Debit(ctx, userID, amount)
	if err != nil {
		return nil, balance, err
	}

	bet := &Bet{
		ID:        uuid.NewString(),
		RoundID:   round.ID,
		UserID:    userID,
		Amount:    amount,
		Selection: selection,
		Status:    BetPending,
		PlacedAt:  time.Now(),
	}

	l.mu.Lock()
	l.bets[round.ID] = append(l.bets[round.ID], bet)
	l.mu.Unlock()

	return bet, balance, nil
}

// Settle pays out every pending bet on the round against the resolved
// outcome. Settling an already-settled round returns the recorded result and
// performs no balance mutation.
func (l *Ledger) Settle(ctx context.Context, round *Round, outcome Outcome) ([]SettledBet, error) {
	l.mu.Lock()
	if recorded, ok := l.settled[round.ID]; ok {
		l.mu.Unlock()
		return recorded, nil
	}
	bets := l.bets[round.ID]
	// Mark before paying so a concurrent duplicate trigger observes the
	// record instead of re-entering.
	l.settled[round.ID] = nil
	l.mu.Unlock()

	results := make([]SettledBet, 0, len(bets))
	for _, bet := range bets {
		if bet.Status != BetPending {
			continue
		}
		payout := SettleAmount(*bet, outcome)
		if payout > 0 {
			if _, err := l.wallet.Credit(ctx, bet.UserID, payout); err != nil {
				// Unmark so the round can still be voided: the marker only
				// records completed settlements, and a failed one must leave
				// the remaining pending bets refundable.
				l.mu.Lock()
				delete(l.settled, round.ID)
				l.mu.Unlock()
				return nil, fmt.Errorf("credit payout for bet %s: %w", bet.ID, err)
			}
			bet.Status = BetWon
			bet.Payout = payout
		} else {
			bet.Status = BetLost
		}
		results = append(results, SettledBet{
			BetID:  bet.ID,
			UserID: bet.UserID,
			Status: bet.Status,
			Payout: bet.Payout,
		})
	}

	l.mu.Lock()
	l.settled[round.ID] = results
	l.mu.Unlock()

	return results, nil
}

// Void refunds every pending bet on a round that could not resolve.
// Idempotent like Settle.
func (l *Ledger) Void(ctx context.Context, round *Round) ([]SettledBet, error) {
	l.mu.Lock()
	if recorded, ok := l.settled[round.ID]; ok {
		l.mu.Unlock()
		return recorded, nil
	}
	bets := l.bets[round.ID]
	l.settled[round.ID] = nil
	l.mu.Unlock()

	results := make([]SettledBet, 0, len(bets))
	for _, bet := range bets {
		if bet.Status != BetPending {
			continue
		}
		if _, err := l.wallet.Credit(ctx, bet.UserID, bet.Amount); err != nil {
			l.mu.Lock()
			delete(l.settled, round.ID)
			l.mu.Unlock()
			return nil, fmt.Errorf("refund bet %s: %w", bet.ID, err)
		}
		bet.Status = BetVoided
		results = append(results, SettledBet{
			BetID:  bet.ID,
			UserID: bet.UserID,
			Status: BetVoided,
		})
	}

	l.mu.Lock()
	l.settled[round.ID] = results
	l.mu.Unlock()

	return results, nil
}

// BetsForRound returns the bets placed on a round, for archival.
func (l *Ledger) BetsForRound(roundID string) []Bet {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Bet, 0, len(l.bets[roundID]))
	for _, b := range l.bets[roundID] {
		out = append(out, *b)
	}
	return out
}

// Forget releases in-memory state for an archived round.
func (l *Ledger) Forget(roundID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bets, roundID)
	delete(l.settled, roundID)
}
