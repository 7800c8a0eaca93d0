package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/goliatone/go-custody/core"
	custodymigrations "github.com/goliatone/go-custody/migrations"
	sqlstore "github.com/goliatone/go-custody/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	walletAddress      = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	otherWalletAddress = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-custody-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:custody-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = custodymigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != custodymigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, custodymigrations.WithValidationTargets(custodymigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newWalletConnection(accountID, address, refreshToken string) core.WalletConnection {
	now := time.Now().UTC()
	return core.WalletConnection{
		Account: core.Account{
			ID:      accountID,
			Address: address,
			Type:    core.AccountTypeEOA,
			Methods: core.DefaultSigningMethods(),
			Options: core.AccountOptions{
				Custodian: core.CustodianOptions{
					EnvironmentName: "keyhaven-prod",
					DisplayName:     "KeyHaven",
				},
				AccountName: "Integration Account",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Details: core.ConnectionDetails{
			RefreshToken:    refreshToken,
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   core.CustodianTypeGen3,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
			Environment:     "keyhaven-prod",
			DisplayName:     "KeyHaven",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"custody_accounts", "custody_wallet_connections", "custody_signing_requests"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestAccountStore_WalletLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccountStore()

	if err := store.AddWallet(ctx, newWalletConnection("acct-1", walletAddress, "refresh-1")); err != nil {
		t.Fatalf("add wallet: %v", err)
	}

	// Address uniqueness ignores case.
	duplicate := newWalletConnection("acct-dup", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", "refresh-dup")
	if err := store.AddWallet(ctx, duplicate); err == nil {
		t.Fatalf("expected case-insensitive unique address violation")
	}

	if err := store.AddWallet(ctx, newWalletConnection("acct-2", otherWalletAddress, "refresh-2")); err != nil {
		t.Fatalf("add second wallet: %v", err)
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Methods[0] != core.MethodPersonalSign {
		t.Fatalf("expected methods round trip, got %v", accounts[0].Methods)
	}

	wallet, found, err := store.GetWalletByAddress(ctx, "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	if err != nil || !found {
		t.Fatalf("wallet by address: found=%v err=%v", found, err)
	}
	if wallet.Details.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected wallet details %+v", wallet.Details)
	}

	rotated := wallet.Details
	rotated.RefreshToken = "refresh-rotated"
	if err := store.UpdateWalletDetails(ctx, "acct-1", rotated); err != nil {
		t.Fatalf("update wallet details: %v", err)
	}
	wallet, _, err = store.GetWalletByAddress(ctx, walletAddress)
	if err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if wallet.Details.RefreshToken != "refresh-rotated" {
		t.Fatalf("expected rotated token persisted, got %q", wallet.Details.RefreshToken)
	}

	if err := store.UpdateWalletDetails(ctx, "acct-missing", rotated); err == nil {
		t.Fatalf("expected missing wallet update to fail")
	}

	if err := store.RemoveAccounts(ctx, []string{"acct-1"}); err != nil {
		t.Fatalf("remove account: %v", err)
	}
	if _, found, _ := store.GetAccount(ctx, "acct-1"); found {
		t.Fatalf("expected account removed")
	}
	var connectionCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM custody_wallet_connections WHERE account_id = ?",
		"acct-1",
	).Scan(ctx, &connectionCount); err != nil {
		t.Fatalf("count connections: %v", err)
	}
	if connectionCount != 0 {
		t.Fatalf("expected connection removed with account, got %d", connectionCount)
	}
}

func TestAccountStore_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccountStore()

	if err := store.AddWallet(ctx, newWalletConnection("acct-tx", walletAddress, "refresh-tx")); err != nil {
		t.Fatalf("add wallet: %v", err)
	}

	failure := errors.New("notification failed")
	err = store.WithTransaction(ctx, func(ctx context.Context, txStore core.AccountStore) error {
		if err := txStore.RemoveAccounts(ctx, []string{"acct-tx"}); err != nil {
			return err
		}
		// The removal must be visible inside the transaction.
		if _, found, err := txStore.GetAccount(ctx, "acct-tx"); err != nil || found {
			return fmt.Errorf("expected in-tx removal visible: found=%v err=%v", found, err)
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected callback error surfaced, got %v", err)
	}

	if _, found, _ := store.GetAccount(ctx, "acct-tx"); !found {
		t.Fatalf("failed transaction must leave the account in place")
	}
}

func TestRequestStore_UpsertAndResolve(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RequestStore()

	now := time.Now().UTC().Truncate(time.Second)
	record := core.SigningRequest{
		ID:          "req-1",
		AccountID:   "acct-1",
		Address:     walletAddress,
		CustodianID: "msg-1",
		Type:        core.RequestTypeMessage,
		SubType:     core.SubTypePersonalSign,
		Status:      core.RequestStatusPending,
		Message:     &core.SignedMessageDetails{ID: "msg-1"},
		Payload:     map[string]any{"message": "0x00"},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := store.UpsertRequest(ctx, record); err != nil {
		t.Fatalf("insert request: %v", err)
	}

	record.Status = core.RequestStatusFulfilled
	record.Signature = "0xdeadbeef"
	record.Message.Signature = "0xdeadbeef"
	record.LastUpdated = now.Add(time.Minute)
	if err := store.UpsertRequest(ctx, record); err != nil {
		t.Fatalf("resolve request: %v", err)
	}

	stored, found, err := store.GetRequest(ctx, "req-1")
	if err != nil || !found {
		t.Fatalf("get request: found=%v err=%v", found, err)
	}
	if stored.Status != core.RequestStatusFulfilled {
		t.Fatalf("expected fulfilled status persisted, got %s", stored.Status)
	}
	if stored.Signature != "0xdeadbeef" {
		t.Fatalf("expected signature persisted, got %q", stored.Signature)
	}
	if stored.Message == nil || stored.Message.Signature != "0xdeadbeef" {
		t.Fatalf("expected message details round trip, got %+v", stored.Message)
	}

	var rowCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM custody_signing_requests WHERE id = ?",
		"req-1",
	).Scan(ctx, &rowCount); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", rowCount)
	}

	requests, err := store.ListRequests(ctx)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected one request, got %d", len(requests))
	}
}

func TestNewService_WiresStoresFromRepositoryFactory(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	repoFactory := sqlstore.NewRepositoryFactory()
	svc, err := core.NewService(core.Config{Environment: core.EnvironmentDevelopment},
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(repoFactory),
		core.WithClientFactory(core.CustodianTypeGen3, func(core.ClientConfig) (core.CustodianClient, error) {
			return nil, fmt.Errorf("not used")
		}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.AccountStore == nil {
		t.Fatalf("expected account store from repository factory build")
	}
	if deps.RequestStore == nil {
		t.Fatalf("expected request store from repository factory build")
	}

	account, err := svc.CreateAccount(context.Background(), core.CreateAccountInput{
		Address: walletAddress,
		Name:    "Wired Account",
		Details: core.ConnectionDetails{
			RefreshToken:    "refresh-wired",
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   core.CustodianTypeGen3,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
		},
	})
	if err != nil {
		t.Fatalf("create account through sql stores: %v", err)
	}
	if _, found, err := svc.GetAccount(context.Background(), account.ID); err != nil || !found {
		t.Fatalf("expected persisted account: found=%v err=%v", found, err)
	}
}

func TestConnect_OpensSQLiteWithMatchingDialect(t *testing.T) {
	dsn := fmt.Sprintf(
		"file:custody-connect-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Connect(testPersistenceConfig{driver: "sqlite3", server: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Close() }()

	if _, err := sqlstore.NewRepositoryFactoryFromPersistence(client); err != nil {
		t.Fatalf("build stores over connected client: %v", err)
	}
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	if _, err := sqlstore.Connect(testPersistenceConfig{driver: "oracle", server: "dsn"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
