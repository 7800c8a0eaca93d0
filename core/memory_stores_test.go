package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAccountStore_UpdateWalletDetailsBumpsTimestamp(t *testing.T) {
	store := NewMemoryAccountStore()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	wallet := WalletConnection{
		Account: Account{
			ID:        "acct-1",
			Address:   testAddress,
			Type:      AccountTypeEOA,
			CreatedAt: created,
			UpdatedAt: created,
		},
		Details: ConnectionDetails{
			RefreshToken:    "refresh-token",
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   CustodianTypeGen3,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := store.AddWallet(context.Background(), wallet); err != nil {
		t.Fatalf("add wallet: %v", err)
	}

	rotated := wallet.Details
	rotated.RefreshToken = "rotated-token"
	if err := store.UpdateWalletDetails(context.Background(), "acct-1", rotated); err != nil {
		t.Fatalf("update wallet details: %v", err)
	}

	reloaded, found, err := store.GetWalletByAddress(context.Background(), testAddress)
	if err != nil || !found {
		t.Fatalf("reload wallet: found=%v err=%v", found, err)
	}
	if reloaded.Details.RefreshToken != "rotated-token" {
		t.Fatalf("expected rotated token, got %q", reloaded.Details.RefreshToken)
	}
	if !reloaded.UpdatedAt.After(created) {
		t.Fatalf("update must bump the connection timestamp, got %v", reloaded.UpdatedAt)
	}
}
