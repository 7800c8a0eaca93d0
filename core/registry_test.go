package core

import (
	"context"
	"testing"
	"time"
)

const testAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func seedWallet(t *testing.T, store AccountStore, address string, custodianType CustodianType) {
	t.Helper()
	err := store.AddWallet(context.Background(), WalletConnection{
		Account: Account{
			ID:      "acct-" + address[2:8],
			Address: address,
			Type:    AccountTypeEOA,
			Methods: DefaultSigningMethods(),
		},
		Details: ConnectionDetails{
			RefreshToken:    "refresh-token",
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   custodianType,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
		},
		CreatedAt: testClock,
		UpdatedAt: testClock,
	})
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
}

func newTestRegistry(t *testing.T, store AccountStore, factories map[CustodianType]ClientFactory) *ClientRegistry {
	t.Helper()
	registry, err := NewClientRegistry(ClientRegistryConfig{
		Factories:      factories,
		Store:          store,
		RequestTimeout: time.Second,
		Now:            fixedNow,
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func TestClientRegistry_ReusesClientPerAddress(t *testing.T) {
	store := NewMemoryAccountStore()
	seedWallet(t, store, testAddress, CustodianTypeGen3)

	constructed := 0
	registry := newTestRegistry(t, store, map[CustodianType]ClientFactory{
		CustodianTypeGen3: func(ClientConfig) (CustodianClient, error) {
			constructed++
			return newFakeClient(CustodianTypeGen3), nil
		},
	})

	first, err := registry.GetOrCreate(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	// Case variants of the same address must resolve to the same entry.
	second, err := registry.GetOrCreate(context.Background(), "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first != second {
		t.Fatalf("expected one client instance per address")
	}
	if constructed != 1 {
		t.Fatalf("expected 1 construction, got %d", constructed)
	}
	if registry.Size() != 1 {
		t.Fatalf("expected 1 registry entry, got %d", registry.Size())
	}
}

func TestClientRegistry_UnknownWalletFails(t *testing.T) {
	registry := newTestRegistry(t, NewMemoryAccountStore(), map[CustodianType]ClientFactory{
		CustodianTypeGen3: func(ClientConfig) (CustodianClient, error) {
			return newFakeClient(CustodianTypeGen3), nil
		},
	})
	if _, err := registry.GetOrCreate(context.Background(), testAddress); err == nil {
		t.Fatalf("expected missing wallet error")
	}
	if registry.Size() != 0 {
		t.Fatalf("failed lookup must not cache an entry")
	}
}

func TestClientRegistry_UnknownCustodianTypeNeverCached(t *testing.T) {
	store := NewMemoryAccountStore()
	seedWallet(t, store, testAddress, CustodianTypeGen1)

	registry := newTestRegistry(t, store, map[CustodianType]ClientFactory{
		CustodianTypeGen3: func(ClientConfig) (CustodianClient, error) {
			return newFakeClient(CustodianTypeGen3), nil
		},
	})

	if _, err := registry.GetOrCreate(context.Background(), testAddress); err == nil {
		t.Fatalf("expected unknown custodian type error")
	}
	if registry.Size() != 0 {
		t.Fatalf("invalid custodian type must not cache a client")
	}
}

func TestClientRegistry_InvalidateUnsubscribesListener(t *testing.T) {
	store := NewMemoryAccountStore()
	seedWallet(t, store, testAddress, CustodianTypeGen3)

	client := newFakeClient(CustodianTypeGen3)
	events := 0
	registry, err := NewClientRegistry(ClientRegistryConfig{
		Factories: map[CustodianType]ClientFactory{
			CustodianTypeGen3: func(ClientConfig) (CustodianClient, error) {
				return client, nil
			},
		},
		Store: store,
		OnTokenEvent: func(context.Context, TokenEvent) {
			events++
		},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	if _, err := registry.GetOrCreate(context.Background(), testAddress); err != nil {
		t.Fatalf("get client: %v", err)
	}
	client.broadcaster.Emit(context.Background(), TokenEvent{Kind: TokenEventRotated})
	if events != 1 {
		t.Fatalf("expected registry listener to observe event, got %d", events)
	}

	registry.Invalidate(testAddress)
	client.broadcaster.Emit(context.Background(), TokenEvent{Kind: TokenEventRotated})
	if events != 1 {
		t.Fatalf("expected unsubscribed listener to stay silent, got %d", events)
	}
	if registry.Size() != 0 {
		t.Fatalf("expected empty registry after invalidate")
	}
}
