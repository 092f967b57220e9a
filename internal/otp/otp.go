// Package otp issues and checks the one-time codes that authorize payment account mutations.
//
// A code stays valid until the next Issue for the same user; validation does not consume it.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/metrics"
)

type Code struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

type Store interface {
	// Replace stores c as the only code of c.UserID.
	Replace(ctx context.Context, c Code) error
	// Exists reports whether (code, username) is the active pair of some user.
	Exists(ctx context.Context, code, username string) (bool, error)
}

type Authority struct {
	Store   Store
	Digits  int
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Generate overrides the random source; nil uses crypto/rand.
	Generate func(digits int) (string, error)
}

func (a *Authority) Issue(ctx context.Context, userID int64, username string) (string, error) {
	if username == "" {
		return "", apperr.New(apperr.InvalidArgument, "username is required")
	}
	gen := a.Generate
	if gen == nil {
		gen = RandomCode
	}
	code, err := gen(a.digits())
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := a.Store.Replace(ctx, Code{UserID: userID, Username: username, Code: code}); err != nil {
		return "", fmt.Errorf("store code for user %d: %w", userID, err)
	}
	a.Metrics.OTPIssued()
	a.logger().Info("otp_issued", zap.Int64("user_id", userID), zap.String("username", username))
	return code, nil
}

// Validate never fails for an unknown pair; it returns false.
func (a *Authority) Validate(ctx context.Context, code, username string) (bool, error) {
	if code == "" || username == "" {
		return false, nil
	}
	ok, err := a.Store.Exists(ctx, code, username)
	if err != nil {
		return false, fmt.Errorf("lookup code: %w", err)
	}
	return ok, nil
}

func (a *Authority) digits() int {
	if a.Digits <= 0 {
		return 4
	}
	return a.Digits
}

func (a *Authority) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

// RandomCode returns a uniformly random number with exactly digits digits.
func RandomCode(digits int) (string, error) {
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(lo, big.NewInt(10)), lo)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, lo).String(), nil
}
