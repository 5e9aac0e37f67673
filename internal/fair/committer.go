package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// FormulaVersion identifies the published derivation math. Bump only with a
// new verification document; old rounds verify against the version they were
// played under.
const FormulaVersion = "v1"

const seedBytes = 32

var (
	ErrNotResolved = errors.New("fair: seed reveal before outcome resolution")
	ErrNoSeed      = errors.New("fair: no seed held for round")
)

// Commitment is the per-round fairness material. ServerSeed stays inside the
// committer until Reveal; only the hash is published at round start.
type Commitment struct {
	ServerSeed     string
	ServerSeedHash string
}

// Committer owns pre-reveal server seeds. One instance per table.
type Committer struct {
	seeds map[string]string // roundID -> unrevealed seed
}

func NewCommitter() *Committer {
	return &Committer{seeds: make(map[string]string)}
}

// BeginRound generates a fresh secret seed and registers it under roundID.
// On entropy failure the round must not open for betting.
func (c *Committer) BeginRound(roundID string) (Commitment, error) {
	seed, err := GenerateSeed()
	if err != nil {
		return Commitment{}, fmt.Errorf("fair: seed generation: %w", err)
	}
	c.seeds[roundID] = seed
	return Commitment{
		ServerSeed:     seed,
		ServerSeedHash: HashSeed(seed),
	}, nil
}

// Reveal hands out the seed for a round and forgets it. The resolved flag is
// asserted by the caller once the outcome is committed to history; revealing
// earlier is a protocol violation.
func (c *Committer) Reveal(roundID string, resolved bool) (string, error) {
	if !resolved {
		return "", ErrNotResolved
	}
	seed, ok := c.seeds[roundID]
	if !ok {
		return "", ErrNoSeed
	}
	delete(c.seeds, roundID)
	return seed, nil
}

// Discard drops the seed for a round that was voided without resolution.
func (c *Committer) Discard(roundID string) {
	delete(c.seeds, roundID)
}

// GenerateSeed returns 32 cryptographically random bytes, hex encoded.
func GenerateSeed() (string, error) {
	b := make([]byte, seedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSeed is the published commitment function: SHA256 over the ASCII seed.
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// DeriveValue is the versioned derivation formula. It must stay byte-for-byte
// reproducible by third parties:
//
//	HMAC-SHA256(key=serverSeed, message=clientSeed+":"+nonce),
//	first 8 hex characters parsed as uint32, divided by 2^32.
//
// The result is uniform in [0,1).
func DeriveValue(serverSeed, clientSeed string, nonce int) float64 {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(clientSeed + ":" + strconv.Itoa(nonce)))
	digest := hex.EncodeToString(mac.Sum(nil))

	v, _ := strconv.ParseUint(digest[:8], 16, 32)
	return float64(v) / 4294967296.0
}

// VerifyCommitment reports whether a revealed seed matches its published hash.
func VerifyCommitment(serverSeed, serverSeedHash string) bool {
	return HashSeed(serverSeed) == serverSeedHash
}
