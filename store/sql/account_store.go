package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-custody/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStore persists accounts and their wallet connections across two
// tables. WithTransaction hands callers a tx-scoped store so multi-step
// mutations commit or roll back as one unit.
type AccountStore struct {
	db             *bun.DB
	accountRepo    repository.Repository[*accountRecord]
	connectionRepo repository.Repository[*walletConnectionRecord]
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]core.Account, error) {
	if s == nil || s.accountRepo == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	records, _, err := s.accountRepo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (core.Account, bool, error) {
	if s == nil || s.db == nil {
		return core.Account{}, false, fmt.Errorf("sqlstore: account store is not configured")
	}
	return getAccount(ctx, s.db, id)
}

func (s *AccountStore) ListWallets(ctx context.Context) ([]core.WalletConnection, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	return listWallets(ctx, s.db)
}

func (s *AccountStore) GetWalletByAddress(ctx context.Context, address string) (core.WalletConnection, bool, error) {
	if s == nil || s.db == nil {
		return core.WalletConnection{}, false, fmt.Errorf("sqlstore: account store is not configured")
	}
	return getWalletByAddress(ctx, s.db, address)
}

func (s *AccountStore) AddWallet(ctx context.Context, wallet core.WalletConnection) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return addWallet(ctx, tx, wallet)
	})
}

func (s *AccountStore) RemoveAccounts(ctx context.Context, ids []string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return removeAccounts(ctx, tx, ids)
	})
}

func (s *AccountStore) UpdateWalletDetails(ctx context.Context, accountID string, details core.ConnectionDetails) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	return updateWalletDetails(ctx, s.db, accountID, details)
}

func (s *AccountStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, store core.AccountStore) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	if fn == nil {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txAccountStore{tx: tx})
	})
}

// txAccountStore is the tx-scoped view handed to WithTransaction callbacks.
// Nested WithTransaction calls reuse the already-open transaction.
type txAccountStore struct {
	tx bun.Tx
}

func (s *txAccountStore) ListAccounts(ctx context.Context) ([]core.Account, error) {
	var records []*accountRecord
	if err := s.tx.NewSelect().Model(&records).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *txAccountStore) GetAccount(ctx context.Context, id string) (core.Account, bool, error) {
	return getAccount(ctx, s.tx, id)
}

func (s *txAccountStore) ListWallets(ctx context.Context) ([]core.WalletConnection, error) {
	return listWallets(ctx, s.tx)
}

func (s *txAccountStore) GetWalletByAddress(ctx context.Context, address string) (core.WalletConnection, bool, error) {
	return getWalletByAddress(ctx, s.tx, address)
}

func (s *txAccountStore) AddWallet(ctx context.Context, wallet core.WalletConnection) error {
	return addWallet(ctx, s.tx, wallet)
}

func (s *txAccountStore) RemoveAccounts(ctx context.Context, ids []string) error {
	return removeAccounts(ctx, s.tx, ids)
}

func (s *txAccountStore) UpdateWalletDetails(ctx context.Context, accountID string, details core.ConnectionDetails) error {
	return updateWalletDetails(ctx, s.tx, accountID, details)
}

func (s *txAccountStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, store core.AccountStore) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, s)
}

func getAccount(ctx context.Context, db bun.IDB, id string) (core.Account, bool, error) {
	record := &accountRecord{}
	err := db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, false, nil
	}
	if err != nil {
		return core.Account{}, false, err
	}
	return record.toDomain(), true, nil
}

func listWallets(ctx context.Context, db bun.IDB) ([]core.WalletConnection, error) {
	var accounts []*accountRecord
	if err := db.NewSelect().Model(&accounts).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	var connections []*walletConnectionRecord
	if err := db.NewSelect().Model(&connections).Scan(ctx); err != nil {
		return nil, err
	}
	byAccountID := make(map[string]*walletConnectionRecord, len(connections))
	for _, connection := range connections {
		byAccountID[connection.AccountID] = connection
	}

	out := make([]core.WalletConnection, 0, len(accounts))
	for _, account := range accounts {
		connection, ok := byAccountID[account.ID]
		if !ok {
			continue
		}
		out = append(out, core.WalletConnection{
			Account:   account.toDomain(),
			Details:   connection.toDetails(),
			CreatedAt: connection.CreatedAt,
			UpdatedAt: connection.UpdatedAt,
		})
	}
	return out, nil
}

func getWalletByAddress(ctx context.Context, db bun.IDB, address string) (core.WalletConnection, bool, error) {
	account := &accountRecord{}
	err := db.NewSelect().Model(account).
		Where("lower(?TableAlias.address) = lower(?)", strings.TrimSpace(address)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WalletConnection{}, false, nil
	}
	if err != nil {
		return core.WalletConnection{}, false, err
	}

	connection := &walletConnectionRecord{}
	err = db.NewSelect().Model(connection).
		Where("?TableAlias.account_id = ?", account.ID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WalletConnection{}, false, nil
	}
	if err != nil {
		return core.WalletConnection{}, false, err
	}

	return core.WalletConnection{
		Account:   account.toDomain(),
		Details:   connection.toDetails(),
		CreatedAt: connection.CreatedAt,
		UpdatedAt: connection.UpdatedAt,
	}, true, nil
}

func addWallet(ctx context.Context, db bun.IDB, wallet core.WalletConnection) error {
	if strings.TrimSpace(wallet.Account.ID) == "" {
		return fmt.Errorf("sqlstore: wallet account id is required")
	}
	if err := wallet.Details.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	account := newAccountRecord(wallet.Account)
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
	if _, err := db.NewInsert().Model(account).Exec(ctx); err != nil {
		return err
	}

	connection := &walletConnectionRecord{
		ID:              uuid.NewString(),
		AccountID:       wallet.Account.ID,
		RefreshToken:    wallet.Details.RefreshToken,
		APIBaseURL:      wallet.Details.APIBaseURL,
		CustodianType:   string(wallet.Details.CustodianType),
		RefreshTokenURL: wallet.Details.RefreshTokenURL,
		Environment:     wallet.Details.Environment,
		DisplayName:     wallet.Details.DisplayName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !wallet.CreatedAt.IsZero() {
		connection.CreatedAt = wallet.CreatedAt
	}
	if !wallet.UpdatedAt.IsZero() {
		connection.UpdatedAt = wallet.UpdatedAt
	}
	_, err := db.NewInsert().Model(connection).Exec(ctx)
	return err
}

func removeAccounts(ctx context.Context, db bun.IDB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := db.NewDelete().Model((*walletConnectionRecord)(nil)).
		Where("account_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDelete().Model((*accountRecord)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

func updateWalletDetails(ctx context.Context, db bun.IDB, accountID string, details core.ConnectionDetails) error {
	trimmedID := strings.TrimSpace(accountID)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: account id is required")
	}
	if err := details.Validate(); err != nil {
		return err
	}
	result, err := db.NewUpdate().Model((*walletConnectionRecord)(nil)).
		Set("refresh_token = ?", details.RefreshToken).
		Set("api_base_url = ?", details.APIBaseURL).
		Set("custodian_type = ?", string(details.CustodianType)).
		Set("refresh_token_url = ?", details.RefreshTokenURL).
		Set("environment = ?", details.Environment).
		Set("display_name = ?", details.DisplayName).
		Set("updated_at = ?", time.Now().UTC()).
		Where("account_id = ?", trimmedID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: wallet connection not found for account %s", trimmedID)
	}
	return nil
}

var (
	_ core.AccountStore = (*AccountStore)(nil)
	_ core.AccountStore = (*txAccountStore)(nil)
)
