// Package auth verifies bearer tokens at the HTTP boundary and hands the caller's identity
// to the core as an explicit Principal.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Verifier checks HS256 tokens signed with Secret. The subject claim is the username.
type Verifier struct {
	Secret []byte
	// OnError writes the rejection; nil answers 401 with an empty body.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

var ErrNoToken = errors.New("missing bearer token")

func (v *Verifier) Parse(token string) (Principal, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, errors.Wrap(err, "parse token")
	}
	if c.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	return Principal{Username: c.Subject, Role: c.Role}, nil
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.fromRequest(r)
		if err != nil {
			if v.OnError != nil {
				v.OnError(w, r, err)
			} else {
				w.WriteHeader(http.StatusUnauthorized)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (v *Verifier) fromRequest(r *http.Request) (Principal, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Principal{}, ErrNoToken
	}
	return v.Parse(strings.TrimSpace(token))
}

// Issue signs a token for p valid for ttl.
func Issue(secret []byte, p Principal, ttl time.Duration, now time.Time) (string, error) {
	c := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	return s, errors.Wrap(err, "sign token")
}
