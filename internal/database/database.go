package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"wheelhouse/internal/game"
)

// Service is the durable archive of resolved rounds and settled bets. The
// live engine never reads it on the hot path; it exists so a round stays
// verifiable after it has been evicted from the in-memory history ring.
type Service interface {
	Health() map[string]string
	Close() error
	ArchiveRound(ctx context.Context, round game.Round, serverSeed string, bets []game.Bet) error
	GetRound(ctx context.Context, roundID string) (*ArchivedRound, error)
}

// ArchivedRound is the stored verification triple plus the declared outcome.
type ArchivedRound struct {
	RoundID        string       `json:"round_id"`
	Table          string       `json:"table"`
	Kind           game.Kind    `json:"kind"`
	ServerSeed     string       `json:"server_seed"`
	ServerSeedHash string       `json:"server_seed_hash"`
	ClientSeed     string       `json:"client_seed"`
	Nonce          int          `json:"nonce"`
	Outcome        game.Outcome `json:"outcome"`
	ResolvedAt     time.Time    `json:"resolved_at"`
}

type dbService struct {
	db *sql.DB
}

var (
	database = getEnv("WHEELHOUSE_DB_DATABASE", "wheelhouse")
	password = getEnv("WHEELHOUSE_DB_PASSWORD", "postgres")
	username = getEnv("WHEELHOUSE_DB_USERNAME", "postgres")
	port     = getEnv("WHEELHOUSE_DB_PORT", "5432")
	host     = getEnv("WHEELHOUSE_DB_HOST", "localhost")
	schema   = getEnv("WHEELHOUSE_DB_SCHEMA", "public")
)

func New() (Service, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	log.Println("[DB] Postgres connected")
	return &dbService{db: db}, nil
}

func (s *dbService) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)

	return stats
}

func (s *dbService) Close() error {
	log.Println("[DB] Disconnecting from Postgres")
	return s.db.Close()
}

// ArchiveRound writes a resolved round and its bets in one transaction. It is
// idempotent on the round id so an archive retry never duplicates rows.
func (s *dbService) ArchiveRound(ctx context.Context, round game.Round, serverSeed string, bets []game.Bet) error {
	if round.Outcome == nil {
		return fmt.Errorf("database: cannot archive unresolved round %s", round.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin archive tx: %w", err)
	}
	defer tx.Rollback()

	var wheelIndex sql.NullInt64
	var color sql.NullString
	var multiplier sql.NullFloat64
	if round.Kind == game.KindWheel {
		wheelIndex = sql.NullInt64{Int64: int64(round.Outcome.WheelIndex), Valid: true}
		color = sql.NullString{String: string(round.Outcome.Color), Valid: true}
	} else {
		multiplier = sql.NullFloat64{Float64: round.Outcome.Multiplier, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rounds (id, table_name, kind, server_seed, server_seed_hash, client_seed, nonce, wheel_index, color, multiplier, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		round.ID, round.Table, round.Kind, serverSeed, round.ServerSeedHash,
		round.ClientSeed, round.Nonce, wheelIndex, color, multiplier, time.Now())
	if err != nil {
		return fmt.Errorf("database: insert round: %w", err)
	}

	for _, bet := range bets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bets (id, round_id, user_id, amount, selection, status, payout, placed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			bet.ID, bet.RoundID, bet.UserID, bet.Amount, bet.Selection, bet.Status, bet.Payout, bet.PlacedAt)
		if err != nil {
			return fmt.Errorf("database: insert bet %s: %w", bet.ID, err)
		}
	}

	return tx.Commit()
}

// GetRound loads an archived round for offline verification.
func (s *dbService) GetRound(ctx context.Context, roundID string) (*ArchivedRound, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, table_name, kind, server_seed, server_seed_hash, client_seed, nonce, wheel_index, color, multiplier, resolved_at
		FROM rounds WHERE id = $1`, roundID)

	var ar ArchivedRound
	var wheelIndex sql.NullInt64
	var color sql.NullString
	var multiplier sql.NullFloat64
	err := row.Scan(&ar.RoundID, &ar.Table, &ar.Kind, &ar.ServerSeed, &ar.ServerSeedHash,
		&ar.ClientSeed, &ar.Nonce, &wheelIndex, &color, &multiplier, &ar.ResolvedAt)
	if err != nil {
		return nil, err
	}

	ar.Outcome.Kind = ar.Kind
	if wheelIndex.Valid {
		ar.Outcome.WheelIndex = int(wheelIndex.Int64)
		ar.Outcome.Color = game.Color(color.String)
	}
	if multiplier.Valid {
		ar.Outcome.Multiplier = multiplier.Float64
	}

	return &ar, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
