package server

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"wheelhouse/internal/fair"
	"wheelhouse/internal/game"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	api.Get("/tables", s.listTablesHandler)
	api.Get("/tables/:table/state", s.tableStateHandler)
	api.Post("/tables/:table/bets", s.placeBetHandler)
	api.Get("/tables/:table/history", s.tableHistoryHandler)
	api.Get("/verify", s.verifyHandler)
	api.Get("/user/:userId/balance", s.getUserBalanceHandler)
	api.Post("/user/:userId/balance", s.setUserBalanceHandler)

	s.App.Get("/ws", websocket.New(s.tableWebSocketHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"cache": s.cache.Health(),
		"game": fiber.Map{
			"tables":            s.registry.Tables(),
			"connected_clients": s.hub.ClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	return c.JSON(health)
}

func (s *FiberServer) listTablesHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tables": s.registry.Tables()})
}

// tableStateHandler serves the current round snapshot. This is the polling
// flavor of the same message the websocket pushes; a reconnecting client can
// resume from either.
func (s *FiberServer) tableStateHandler(c *fiber.Ctx) error {
	sched, ok := s.registry.Get(c.Params("table"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Unknown table"})
	}
	return c.JSON(sched.Snapshot())
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	sched, ok := s.registry.Get(c.Params("table"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Unknown table"})
	}

	var req struct {
		UserID    string  `json:"user_id"`
		Amount    float64 `json:"amount"`
		Selection string  `json:"selection"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "User ID is required"})
	}
	if req.Amount <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	resp := sched.PlaceBet(req.UserID, req.Amount, req.Selection)
	if resp.Err != nil {
		return c.Status(betErrorStatus(resp.Err)).JSON(fiber.Map{
			"error": resp.Err.Error(),
			"code":  game.ErrorCode(resp.Err),
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"bet_id":  resp.Bet.ID,
		"balance": resp.Balance,
	})
}

func betErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrPhaseClosed):
		return 409
	case errors.Is(err, game.ErrInsufficientBalance),
		errors.Is(err, game.ErrBelowMinimum),
		errors.Is(err, game.ErrUnknownSelection):
		return 400
	default:
		return 500
	}
}

func (s *FiberServer) tableHistoryHandler(c *fiber.Ctx) error {
	sched, ok := s.registry.Get(c.Params("table"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Unknown table"})
	}

	n := c.QueryInt("n", 20)
	return c.JSON(fiber.Map{
		"rounds": sched.History().Last(n),
		"stats":  sched.History().StatsOverLast(n),
	})
}

// verifyHandler recomputes an outcome from a revealed seed triple. With a
// round_id it loads the archived triple and compares against the declared
// outcome; with explicit seeds it just runs the published math, so anyone can
// check a round offline.
func (s *FiberServer) verifyHandler(c *fiber.Ctx) error {
	if roundID := c.Query("round_id"); roundID != "" {
		if s.db == nil {
			return c.Status(503).JSON(fiber.Map{"error": "Round archive unavailable"})
		}
		archived, err := s.db.GetRound(c.Context(), roundID)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Round not found"})
		}

		value := fair.DeriveValue(archived.ServerSeed, archived.ClientSeed, archived.Nonce)
		recomputed := game.Resolve(archived.Kind, value)
		return c.JSON(fiber.Map{
			"formula_version":  fair.FormulaVersion,
			"round_id":         archived.RoundID,
			"server_seed":      archived.ServerSeed,
			"server_seed_hash": archived.ServerSeedHash,
			"client_seed":      archived.ClientSeed,
			"nonce":            archived.Nonce,
			"commitment_valid": fair.VerifyCommitment(archived.ServerSeed, archived.ServerSeedHash),
			"declared_outcome": archived.Outcome,
			"computed_outcome": recomputed,
			"outcome_valid":    recomputed == archived.Outcome,
		})
	}

	serverSeed := c.Query("server_seed")
	clientSeed := c.Query("client_seed")
	if serverSeed == "" || clientSeed == "" {
		return c.Status(400).JSON(fiber.Map{"error": "round_id or server_seed+client_seed required"})
	}
	nonce, err := strconv.Atoi(c.Query("nonce", "0"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid nonce"})
	}
	kind := game.Kind(c.Query("kind", string(game.KindWheel)))
	if kind != game.KindWheel && kind != game.KindCrash {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid kind"})
	}

	value := fair.DeriveValue(serverSeed, clientSeed, nonce)
	return c.JSON(fiber.Map{
		"formula_version":  fair.FormulaVersion,
		"derived_value":    value,
		"computed_outcome": game.Resolve(kind, value),
	})
}

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "User ID is required"})
	}

	balance, err := s.wallet.Balance(c.Context(), userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to read balance"})
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

// setUserBalanceHandler seeds a balance (testing/admin).
func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "User ID is required"})
	}

	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.wallet.Set(c.Context(), userID, body.Balance); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to set balance"})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": body.Balance,
	})
}

// tableWebSocketHandler streams snapshots for one table. The first message is
// always the current snapshot, so a client that connects mid-round has
// everything it needs to reconcile an in-progress spin.
func (s *FiberServer) tableWebSocketHandler(conn *websocket.Conn) {
	userID := conn.Query("user_id", "anonymous")
	table := conn.Query("table", "wheel-main")

	sched, ok := s.registry.Get(table)
	if !ok {
		errJSON, _ := json.Marshal(map[string]string{"type": "error", "error": "Unknown table"})
		conn.WriteMessage(websocket.TextMessage, errJSON)
		conn.Close()
		return
	}

	log.Printf("[WS] New connection from user %s on table %s", userID, table)

	client := s.hub.RegisterClient(conn, userID, table)
	client.SendSnapshot(sched.Snapshot())

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for user %s: %v", userID, err)
			s.hub.UnregisterClient(conn)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var clientMsg struct {
			Type      string  `json:"type"`
			Amount    float64 `json:"amount"`
			Selection string  `json:"selection"`
		}
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			continue
		}

		switch clientMsg.Type {
		case "place_bet":
			resp := sched.PlaceBet(userID, clientMsg.Amount, clientMsg.Selection)
			payload := map[string]interface{}{
				"type":    "bet_result",
				"balance": resp.Balance,
			}
			if resp.Err != nil {
				payload["code"] = game.ErrorCode(resp.Err)
				payload["error"] = resp.Err.Error()
			} else {
				payload["bet_id"] = resp.Bet.ID
			}
			respJSON, _ := json.Marshal(payload)
			conn.WriteMessage(websocket.TextMessage, respJSON)

		case "request_snapshot":
			// Resume-after-reconnect path: a fresh snapshot is always
			// sufficient, no missed messages are replayed.
			client.SendSnapshot(sched.Snapshot())

		case "ping":
			pongJSON, _ := json.Marshal(map[string]string{"type": "pong"})
			conn.WriteMessage(websocket.TextMessage, pongJSON)
		}
	}
}
