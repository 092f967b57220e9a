// Package customer is the customer directory boundary.
package customer

import (
	"context"
	"strings"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

type Customer struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Directory interface {
	FindByEmail(ctx context.Context, email string) (Customer, error)
	FindByUsername(ctx context.Context, username string) (Customer, error)
}

func notFoundByEmail(email string) error {
	return apperr.New(apperr.NotFound, "customer not found with email: %s", email)
}

func notFoundByUsername(username string) error {
	return apperr.New(apperr.NotFound, "customer not found with username: %s", username)
}
