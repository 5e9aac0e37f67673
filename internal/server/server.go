package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"wheelhouse/internal/cache"
	"wheelhouse/internal/database"
	"wheelhouse/internal/game"
)

// Default table clocks. The betting window and spin duration are part of the
// client contract: every connected client times its countdown and animation
// off the snapshot fields derived from these.
var defaultTables = []game.TableConfig{
	{
		Name:               "wheel-main",
		Kind:               game.KindWheel,
		BettingWindow:      5000 * time.Millisecond,
		SpinDuration:       4000 * time.Millisecond,
		ShowResultDuration: 3000 * time.Millisecond,
		MinBet:             1.0,
		HistoryCapacity:    100,
		SnapshotRounds:     10,
		StatsWindow:        100,
	},
	{
		Name:               "crash-main",
		Kind:               game.KindCrash,
		BettingWindow:      5000 * time.Millisecond,
		SpinDuration:       4000 * time.Millisecond,
		ShowResultDuration: 3000 * time.Millisecond,
		MinBet:             1.0,
		HistoryCapacity:    100,
		SnapshotRounds:     10,
		StatsWindow:        100,
	},
}

// balanceStore is the slice of the wallet the HTTP surface needs. The game
// ledger holds the full game.Wallet; the API only reads and seeds balances.
type balanceStore interface {
	Balance(ctx context.Context, userID string) (float64, error)
	Set(ctx context.Context, userID string, balance float64) error
}

type FiberServer struct {
	*fiber.App

	db       database.Service
	cache    cache.Service
	wallet   balanceStore
	hub      *game.Hub
	registry *game.Registry
}

func New() *FiberServer {
	redisService, err := cache.New()
	if err != nil {
		log.Fatalf("[SERVER] Redis is required for balances and round state: %v", err)
	}

	// The archive is durable verification storage, not hot-path state; the
	// engine runs without it.
	db, err := database.New()
	if err != nil {
		log.Printf("[SERVER] Round archive disabled: %v", err)
		db = nil
	}

	hub := game.NewHub()
	wallet := game.NewRedisWallet(redisService.GetClient())
	roundCache := game.NewRoundCache(redisService.GetClient())

	registry := game.NewRegistry()
	for _, cfg := range defaultTables {
		ledger := game.NewLedger(wallet, cfg.MinBet)
		var archive game.Archive
		if db != nil {
			archive = db
		}
		sched := game.NewScheduler(cfg, ledger, hub, archive, roundCache)
		if err := registry.Register(sched); err != nil {
			log.Fatalf("[SERVER] %v", err)
		}
	}

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "wheelhouse",
			AppName:       "wheelhouse",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:       db,
		cache:    redisService,
		wallet:   wallet,
		hub:      hub,
		registry: registry,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()
	registry.StartAll()

	log.Printf("[SERVER] %d tables running", len(registry.Tables()))

	return server
}

// Shutdown stops the table schedulers and closes connections.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if s.registry != nil {
		s.registry.StopAll()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
