package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Directory resolves an account to the basis a token is issued from. Role and
// tier assignment is owned by the directory; the engine only reads it.
type Directory interface {
	LookupAccount(ctx context.Context, id string) (Basis, error)
}

// StaticDirectory is an in-memory Directory, used when no database is configured.
type StaticDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Basis
}

// NewStaticDirectory returns a directory seeded with accounts.
func NewStaticDirectory(accounts ...Basis) *StaticDirectory {
	d := &StaticDirectory{accounts: make(map[string]Basis, len(accounts))}
	for _, a := range accounts {
		d.accounts[strings.TrimSpace(a.ID)] = a
	}
	return d
}

// LookupAccount implements Directory.
func (d *StaticDirectory) LookupAccount(_ context.Context, id string) (Basis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Basis{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.accounts[id]
	if !ok {
		return Basis{}, fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	return b, nil
}

// Put adds or replaces an account.
func (d *StaticDirectory) Put(b Basis) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[strings.TrimSpace(b.ID)] = b
}
