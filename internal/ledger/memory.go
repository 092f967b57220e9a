package ledger

import (
	"context"
	"sync"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

// MemoryStore keeps accounts in a map. Transactions are serialized and their writes are
// applied only on success.
type MemoryStore struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	accounts map[string]Account
	nextID   int64
}

func NewMemoryStore(accounts ...Account) *MemoryStore {
	m := &MemoryStore{accounts: make(map[string]Account)}
	for _, a := range accounts {
		m.put(a)
	}
	return m
}

func (m *MemoryStore) put(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		m.nextID++
		a.ID = m.nextID
	} else if a.ID > m.nextID {
		m.nextID = a.ID
	}
	m.accounts[a.AccountNumber] = a
}

func (m *MemoryStore) FindAccount(_ context.Context, accountNumber string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountNumber]
	if !ok {
		return Account{}, notFound(accountNumber)
	}
	return a, nil
}

func (m *MemoryStore) FindOwnedAccount(ctx context.Context, accountNumber, owner string) (Account, error) {
	a, err := m.FindAccount(ctx, accountNumber)
	if err != nil {
		return Account{}, err
	}
	if a.Username != owner {
		return Account{}, notFound(accountNumber)
	}
	return a, nil
}

func (m *MemoryStore) Save(_ context.Context, a Account) error {
	if err := checkBalance(a); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.AccountNumber]; !ok {
		return notFound(a.AccountNumber)
	}
	m.accounts[a.AccountNumber] = a
	return nil
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{base: m, staged: make(map[string]Account)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range tx.staged {
		m.accounts[k] = a
	}
	return nil
}

type memoryTx struct {
	base   *MemoryStore
	staged map[string]Account
}

func (t *memoryTx) FindAccount(ctx context.Context, accountNumber string) (Account, error) {
	if a, ok := t.staged[accountNumber]; ok {
		return a, nil
	}
	return t.base.FindAccount(ctx, accountNumber)
}

func (t *memoryTx) FindOwnedAccount(ctx context.Context, accountNumber, owner string) (Account, error) {
	a, err := t.FindAccount(ctx, accountNumber)
	if err != nil {
		return Account{}, err
	}
	if a.Username != owner {
		return Account{}, notFound(accountNumber)
	}
	return a, nil
}

func (t *memoryTx) Save(ctx context.Context, a Account) error {
	if err := checkBalance(a); err != nil {
		return err
	}
	if _, err := t.FindAccount(ctx, a.AccountNumber); err != nil {
		return err
	}
	t.staged[a.AccountNumber] = a
	return nil
}

func notFound(accountNumber string) error {
	return apperr.New(apperr.NotFound, "account %s not found", accountNumber)
}

func checkBalance(a Account) error {
	if a.Balance.IsNegative() {
		return apperr.New(apperr.Internal, "refusing to persist negative balance for account %s", a.AccountNumber)
	}
	return nil
}

func errAlreadyExists(accountNumber string) error {
	return apperr.New(apperr.AlreadyExists, "account %s already exists", accountNumber)
}

// Open creates an account.
func (m *MemoryStore) Open(_ context.Context, a Account) (Account, error) {
	if err := checkBalance(a); err != nil {
		return Account{}, err
	}
	m.mu.RLock()
	_, exists := m.accounts[a.AccountNumber]
	m.mu.RUnlock()
	if exists {
		return Account{}, errAlreadyExists(a.AccountNumber)
	}
	a.ID = 0
	m.put(a)
	return m.FindAccount(context.Background(), a.AccountNumber)
}
