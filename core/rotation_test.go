package core

import (
	"context"
	"strings"
	"testing"
)

// orderProbeStore observes registry state at the moment wallet details are
// persisted, so tests can assert the invalidate-before-persist ordering.
type orderProbeStore struct {
	AccountStore
	onUpdate func(accountID string)
}

func (s *orderProbeStore) UpdateWalletDetails(ctx context.Context, accountID string, details ConnectionDetails) error {
	if s.onUpdate != nil {
		s.onUpdate(accountID)
	}
	return s.AccountStore.UpdateWalletDetails(ctx, accountID, details)
}

func TestTokenRotation_FansOutToMatchingWallets(t *testing.T) {
	store := NewMemoryAccountStore()
	client := newFakeClient(CustodianTypeGen3)
	service, _, _ := newTestService(t, testServiceConfig{
		client:  client,
		options: []Option{WithAccountStore(store)},
	})

	// Two accounts share the custodian session; a third uses its own token.
	shared1 := mustCreateAccount(t, service, testAddress)
	shared2 := mustCreateAccount(t, service, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	other, err := service.CreateAccount(context.Background(), CreateAccountInput{
		Address: "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		Details: ConnectionDetails{
			RefreshToken:    "unrelated-token",
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   CustodianTypeGen3,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
		},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := service.Registry().GetOrCreate(context.Background(), shared1.Address); err != nil {
		t.Fatalf("warm registry: %v", err)
	}

	client.broadcaster.Emit(context.Background(), TokenEvent{
		Kind:            TokenEventRotated,
		APIBaseURL:      "https://api.keyhaven.io/",
		OldRefreshToken: "refresh-token",
		NewRefreshToken: "rotated-token",
	})

	wallets, err := store.ListWallets(context.Background())
	if err != nil {
		t.Fatalf("list wallets: %v", err)
	}
	tokens := map[string]string{}
	for _, wallet := range wallets {
		tokens[wallet.Account.ID] = wallet.Details.RefreshToken
	}
	if tokens[shared1.ID] != "rotated-token" || tokens[shared2.ID] != "rotated-token" {
		t.Fatalf("expected both session wallets rotated, got %v", tokens)
	}
	if tokens[other.ID] != "unrelated-token" {
		t.Fatalf("unrelated wallet must keep its token, got %q", tokens[other.ID])
	}
}

func TestTokenRotation_InvalidatesBeforePersisting(t *testing.T) {
	probe := &orderProbeStore{AccountStore: NewMemoryAccountStore()}
	client := newFakeClient(CustodianTypeGen3)
	service, _, _ := newTestService(t, testServiceConfig{
		client:  client,
		options: []Option{WithAccountStore(probe)},
	})

	account := mustCreateAccount(t, service, testAddress)
	if _, err := service.Registry().GetOrCreate(context.Background(), account.Address); err != nil {
		t.Fatalf("warm registry: %v", err)
	}

	sizeAtUpdate := -1
	probe.onUpdate = func(string) {
		sizeAtUpdate = service.registry.Size()
	}

	client.broadcaster.Emit(context.Background(), TokenEvent{
		Kind:            TokenEventRotated,
		APIBaseURL:      "https://api.keyhaven.io",
		OldRefreshToken: "refresh-token",
		NewRefreshToken: "rotated-token",
	})

	if sizeAtUpdate != 0 {
		t.Fatalf("registry entry must be invalidated before details are persisted, size was %d", sizeAtUpdate)
	}
}

func TestTokenExpired_SurfacesReauthenticationMessage(t *testing.T) {
	client := newFakeClient(CustodianTypeGen3)
	service, _, renderer := newTestService(t, testServiceConfig{client: client})

	account := mustCreateAccount(t, service, testAddress)
	if _, err := service.Registry().GetOrCreate(context.Background(), account.Address); err != nil {
		t.Fatalf("warm registry: %v", err)
	}

	client.broadcaster.Emit(context.Background(), TokenEvent{
		Kind:                TokenEventExpired,
		APIBaseURL:          "https://api.keyhaven.io",
		OldRefreshTokenHash: "a1b2c3",
		ReauthURL:           "https://api.keyhaven.io",
	})

	if renderer.errorCount() != 1 {
		t.Fatalf("expected one expiry message, got %d", renderer.errorCount())
	}
	message := renderer.errors[0]
	if !strings.Contains(message, "session has expired") {
		t.Fatalf("unexpected expiry message %q", message)
	}
	if !strings.Contains(message, "https://api.keyhaven.io") {
		t.Fatalf("expected reauthentication url in message, got %q", message)
	}
	if strings.Contains(message, "refresh-token") {
		t.Fatalf("raw token must never reach the user, got %q", message)
	}
}
