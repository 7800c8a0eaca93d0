package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type registryEntry struct {
	client      CustodianClient
	unsubscribe func()
}

// ClientRegistry caches at most one live wire client per normalized account
// address. Entries are built lazily from the stored wallet connection and
// removed on token rotation, to be rebuilt with the new token on next access.
type ClientRegistry struct {
	mu           sync.Mutex
	entries      map[string]*registryEntry
	factories    map[CustodianType]ClientFactory
	store        AccountStore
	timeout      time.Duration
	httpClient   HTTPDoer
	now          func() time.Time
	onTokenEvent TokenEventListener
}

type ClientRegistryConfig struct {
	Factories      map[CustodianType]ClientFactory
	Store          AccountStore
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Now            func() time.Time
	OnTokenEvent   TokenEventListener
}

func NewClientRegistry(cfg ClientRegistryConfig) (*ClientRegistry, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("core: account store is required")
	}
	if len(cfg.Factories) == 0 {
		return nil, fmt.Errorf("core: at least one client factory is required")
	}
	factories := make(map[CustodianType]ClientFactory, len(cfg.Factories))
	for custodianType, factory := range cfg.Factories {
		if err := custodianType.Validate(); err != nil {
			return nil, err
		}
		if factory == nil {
			return nil, fmt.Errorf("core: client factory for %q is nil", custodianType)
		}
		factories[custodianType] = factory
	}
	return &ClientRegistry{
		entries:      make(map[string]*registryEntry),
		factories:    factories,
		store:        cfg.Store,
		timeout:      cfg.RequestTimeout,
		httpClient:   cfg.HTTPClient,
		now:          cfg.Now,
		onTokenEvent: cfg.OnTokenEvent,
	}, nil
}

// GetOrCreate returns the live client for an address, constructing it from
// the stored wallet connection on miss. The registry lock is held across the
// whole lookup-construct-insert sequence so concurrent callers for one
// address observe the same instance.
func (r *ClientRegistry) GetOrCreate(ctx context.Context, address string) (CustodianClient, error) {
	if r == nil {
		return nil, fmt.Errorf("core: client registry is nil")
	}
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[normalized]; ok {
		return entry.client, nil
	}

	wallet, found, err := r.store.GetWalletByAddress(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errWalletNotFound(normalized)
	}

	// Custodian-type validation happens strictly before construction; an
	// unknown type never produces a cached client.
	factory, ok := r.factories[wallet.Details.CustodianType]
	if !ok {
		return nil, goerrors.New(
			"core: no client factory for custodian type "+string(wallet.Details.CustodianType),
			goerrors.CategoryConflict,
		).WithTextCode(CustodyErrorUnknownCustodian).WithCode(http.StatusConflict)
	}

	client, err := factory(ClientConfig{
		RefreshToken:    wallet.Details.RefreshToken,
		APIBaseURL:      wallet.Details.APIBaseURL,
		RefreshTokenURL: wallet.Details.RefreshTokenURL,
		RequestTimeout:  r.timeout,
		HTTPClient:      r.httpClient,
		Now:             r.now,
	})
	if err != nil {
		return nil, err
	}

	entry := &registryEntry{client: client}
	if r.onTokenEvent != nil {
		entry.unsubscribe = client.Subscribe(r.onTokenEvent)
	}
	r.entries[normalized] = entry
	return client, nil
}

// Invalidate evicts the client for an address, unsubscribing its token
// listener so repeated eviction and recreation cannot leak listeners. The
// entry is rebuilt lazily on the next GetOrCreate.
func (r *ClientRegistry) Invalidate(address string) {
	if r == nil {
		return
	}
	key, err := NormalizeAddress(address)
	if err != nil {
		key = strings.TrimSpace(address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return
	}
	delete(r.entries, key)
	if entry.unsubscribe != nil {
		entry.unsubscribe()
	}
}

// Size is a test hook reporting the number of live entries.
func (r *ClientRegistry) Size() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ Registry = (*ClientRegistry)(nil)
