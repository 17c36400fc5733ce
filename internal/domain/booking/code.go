package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

// ErrCodeGenerationExhausted signals that even the deterministic fallback
// code collided. This is an operational alert, not a user error.
var ErrCodeGenerationExhausted = errors.New("booking: code generation exhausted")

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8

	// maxCodeAttempts bounds random draws before the fallback path.
	maxCodeAttempts = 5
)

// CodeIndex is the read the generator needs: a lookup that returns
// ErrNotFound when a code is free.
type CodeIndex interface {
	ByCode(ctx context.Context, code string) (*Booking, error)
}

// CodeGenerator produces short human-readable booking codes, unique against
// persisted bookings. The storage-level unique constraint on the code remains
// the final authority under concurrency; this generator only minimizes
// collisions.
type CodeGenerator struct {
	Index CodeIndex
	Now   func() time.Time
}

// Generate draws 8-character codes from [A-Z0-9], retrying on collision, and
// falls back to "BK" + last 6 digits of the unix timestamp + 2 random
// characters when the random space keeps colliding.
func (g CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}
		free, err := g.codeFree(ctx, code)
		if err != nil {
			return "", err
		}
		if free {
			return code, nil
		}
	}

	suffix, err := randomCode(2)
	if err != nil {
		return "", err
	}
	ts := g.now().Unix() % 1_000_000
	fallback := fmt.Sprintf("BK%06d%s", ts, suffix)
	free, err := g.codeFree(ctx, fallback)
	if err != nil {
		return "", err
	}
	if !free {
		return "", ErrCodeGenerationExhausted
	}
	return fallback, nil
}

func (g CodeGenerator) codeFree(ctx context.Context, code string) (bool, error) {
	_, err := g.Index.ByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (g CodeGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("booking: reading randomness: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
