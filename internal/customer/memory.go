package customer

import (
	"context"
	"strings"
	"sync"
)

type MemoryDirectory struct {
	mu        sync.RWMutex
	customers []Customer
}

func NewMemoryDirectory(cs ...Customer) *MemoryDirectory {
	d := &MemoryDirectory{}
	for i, c := range cs {
		if c.ID == 0 {
			c.ID = int64(i + 1)
		}
		d.customers = append(d.customers, c)
	}
	return d
}

// FindByEmail matches case-insensitively.
func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return Customer{}, notFoundByEmail(email)
}

func (d *MemoryDirectory) FindByUsername(_ context.Context, username string) (Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if c.Username == username {
			return c, nil
		}
	}
	return Customer{}, notFoundByUsername(username)
}
