package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryAccountStore is the in-process AccountStore used when no persistence
// backend is wired. It keeps full transactional semantics: WithTransaction
// runs against a shadow copy and commits only on success.
type MemoryAccountStore struct {
	mu      sync.RWMutex
	wallets map[string]WalletConnection
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		wallets: map[string]WalletConnection{},
	}
}

func (s *MemoryAccountStore) ListAccounts(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]Account, 0, len(s.wallets))
	for _, wallet := range s.wallets {
		accounts = append(accounts, wallet.Account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryAccountStore) GetAccount(_ context.Context, id string) (Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Account{}, false, nil
	}
	return wallet.Account, true, nil
}

func (s *MemoryAccountStore) ListWallets(_ context.Context) ([]WalletConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := make([]WalletConnection, 0, len(s.wallets))
	for _, wallet := range s.wallets {
		wallets = append(wallets, wallet)
	}
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt.Equal(wallets[j].CreatedAt) {
			return wallets[i].Account.ID < wallets[j].Account.ID
		}
		return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
	})
	return wallets, nil
}

func (s *MemoryAccountStore) GetWalletByAddress(_ context.Context, address string) (WalletConnection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(address))
	for _, wallet := range s.wallets {
		if strings.ToLower(wallet.Account.Address) == needle {
			return wallet, true, nil
		}
	}
	return WalletConnection{}, false, nil
}

func (s *MemoryAccountStore) AddWallet(_ context.Context, wallet WalletConnection) error {
	if strings.TrimSpace(wallet.Account.ID) == "" {
		return fmt.Errorf("core: wallet account id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[wallet.Account.ID]; exists {
		return fmt.Errorf("core: wallet already exists for account %s", wallet.Account.ID)
	}
	s.wallets[wallet.Account.ID] = wallet
	return nil
}

func (s *MemoryAccountStore) RemoveAccounts(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.wallets, id)
	}
	return nil
}

func (s *MemoryAccountStore) UpdateWalletDetails(_ context.Context, accountID string, details ConnectionDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, ok := s.wallets[accountID]
	if !ok {
		return errWalletNotFound(accountID)
	}
	wallet.Details = details
	wallet.UpdatedAt = time.Now().UTC()
	s.wallets[accountID] = wallet
	return nil
}

func (s *MemoryAccountStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	shadow := &MemoryAccountStore{wallets: make(map[string]WalletConnection, len(s.wallets))}
	for id, wallet := range s.wallets {
		shadow.wallets[id] = wallet
	}
	s.mu.Unlock()

	if err := fn(ctx, shadow); err != nil {
		return err
	}

	s.mu.Lock()
	s.wallets = shadow.wallets
	s.mu.Unlock()
	return nil
}

// MemoryRequestStore is the in-process RequestStore counterpart.
type MemoryRequestStore struct {
	mu       sync.RWMutex
	requests map[string]SigningRequest
}

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{
		requests: map[string]SigningRequest{},
	}
}

func (s *MemoryRequestStore) UpsertRequest(_ context.Context, record SigningRequest) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("core: signing request id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[record.ID] = record
	return nil
}

func (s *MemoryRequestStore) GetRequest(_ context.Context, id string) (SigningRequest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.requests[id]
	return record, ok, nil
}

func (s *MemoryRequestStore) ListRequests(_ context.Context) ([]SigningRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]SigningRequest, 0, len(s.requests))
	for _, record := range s.requests {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

var (
	_ AccountStore = (*MemoryAccountStore)(nil)
	_ RequestStore = (*MemoryRequestStore)(nil)
)
