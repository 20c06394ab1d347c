// Package otp holds outstanding one-time login codes keyed by phone number.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrNotFound is returned when no code is outstanding for a phone.
var ErrNotFound = errors.New("otp: no outstanding code")

// Record is an outstanding code and the number of wrong guesses against it.
type Record struct {
	Code     string
	Expires  time.Time
	Attempts int
}

// Store keeps at most one record per phone. Records disappear once their
// TTL elapses.
type Store interface {
	Save(ctx context.Context, phone string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, phone string) (Record, error)
	IncrAttempts(ctx context.Context, phone string) (int, error)
	Delete(ctx context.Context, phone string) error
}

// GenerateCode returns a random numeric code of the given length without a
// leading zero.
func GenerateCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("otp: invalid code length %d", digits)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return n.Add(n, low).String(), nil
}
