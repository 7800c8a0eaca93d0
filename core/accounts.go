package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CreateAccountInput is one onboarding selection: the address the custodian
// reported plus the connection details needed to reach it.
type CreateAccountInput struct {
	Address      string
	Name         string
	Details      ConnectionDetails
	ImportOrigin string
}

func (in CreateAccountInput) Validate() error {
	if strings.TrimSpace(in.Address) == "" {
		return fmt.Errorf("core: account address is required")
	}
	return in.Details.Validate()
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	accounts, err := s.accountStore.ListAccounts(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return accounts, nil
}

// GetAccount returns an empty result, not an error, for an unknown id.
func (s *Service) GetAccount(ctx context.Context, id string) (Account, bool, error) {
	if s == nil {
		return Account{}, false, fmt.Errorf("core: service is nil")
	}
	account, found, err := s.accountStore.GetAccount(ctx, strings.TrimSpace(id))
	if err != nil {
		return Account{}, false, s.mapError(err)
	}
	return account, found, nil
}

// CreateAccount validates and registers one custodial account. The flow is
// two-phase: the account is proposed to the host notifier first, and the
// wallet connection is persisted only after the host accepts.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (account Account, err error) {
	if s == nil {
		return Account{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"address":        in.Address,
		"custodian_type": string(in.Details.CustodianType),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "account_create", err, fields)
	}()

	if err = in.Validate(); err != nil {
		err = s.mapError(err)
		return Account{}, err
	}
	address, normErr := NormalizeAddress(in.Address)
	if normErr != nil {
		err = s.mapError(normErr)
		return Account{}, err
	}

	details := in.Details
	custodian := CustodianOptions{
		EnvironmentName: details.Environment,
		DisplayName:     details.DisplayName,
		ImportOrigin:    strings.TrimSpace(in.ImportOrigin),
	}
	metadata, known := LookupCustodianMetadata(s.allowList, details.APIBaseURL)
	if known {
		custodian.EnvironmentName = metadata.Name
		custodian.DisplayName = metadata.DisplayName
		custodian.DeferPublication = metadata.PublishesTransactions
		details.Environment = metadata.Name
		details.DisplayName = metadata.DisplayName
	} else if s.config.Strict() {
		err = errUnknownCustodian(details.APIBaseURL)
		return Account{}, err
	}

	if _, exists, lookupErr := s.accountStore.GetWalletByAddress(ctx, address); lookupErr != nil {
		err = s.mapError(lookupErr)
		return Account{}, err
	} else if exists {
		err = errDuplicateAddress(address)
		return Account{}, err
	}

	now := s.now()
	account = Account{
		ID:      uuid.NewString(),
		Address: address,
		Type:    AccountTypeEOA,
		Methods: DefaultSigningMethods(),
		Options: AccountOptions{
			Custodian:   custodian,
			AccountName: strings.TrimSpace(in.Name),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	decision, notifyErr := s.notifier.AccountCreated(ctx, account)
	if notifyErr != nil {
		err = s.mapError(notifyErr)
		return Account{}, err
	}
	if !decision.Accepted {
		err = errRegistrationVetoed(decision.Reason)
		return Account{}, err
	}

	if addErr := s.accountStore.AddWallet(ctx, WalletConnection{
		Account:   account,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}); addErr != nil {
		err = s.mapError(addErr)
		return Account{}, err
	}
	return account, nil
}

// CreateAccounts processes a batch of onboarding selections. A failed entry
// does not abort the rest; failures are aggregated into one error and each is
// surfaced to the user individually.
func (s *Service) CreateAccounts(ctx context.Context, inputs []CreateAccountInput) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	created := make([]Account, 0, len(inputs))
	var failures []string
	for _, in := range inputs {
		account, err := s.CreateAccount(ctx, in)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", in.Address, err.Error()))
			s.renderer.ShowErrorMessage(ctx, fmt.Sprintf("Failed to import account %s", in.Address))
			continue
		}
		created = append(created, account)
	}
	if len(failures) > 0 {
		return created, s.mapError(goerrors.New(
			"core: failed to create accounts: "+strings.Join(failures, "; "),
			goerrors.CategoryBadInput,
		).WithTextCode(CustodyErrorBadInput))
	}
	return created, nil
}

// DeleteAccount removes the account and emits the deleted notification inside
// one atomic scope; if either step fails no partial removal is observable.
func (s *Service) DeleteAccount(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"account_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "account_delete", err, fields)
	}()

	account, found, getErr := s.accountStore.GetAccount(ctx, strings.TrimSpace(id))
	if getErr != nil {
		err = s.mapError(getErr)
		return err
	}
	if !found {
		err = errAccountNotFound(id)
		return err
	}

	err = s.accountStore.WithTransaction(ctx, func(ctx context.Context, store AccountStore) error {
		if removeErr := store.RemoveAccounts(ctx, []string{account.ID}); removeErr != nil {
			return removeErr
		}
		return s.notifier.AccountDeleted(ctx, account.ID)
	})
	if err != nil {
		err = s.mapError(err)
		return err
	}
	s.registry.Invalidate(account.Address)
	return nil
}

// FilterAccountChains returns the subset of candidate chain ids the
// custodian supports for the account.
func (s *Service) FilterAccountChains(ctx context.Context, id string, candidates []string) (chains []string, err error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"account_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "account_filter_chains", err, fields)
	}()

	account, found, getErr := s.accountStore.GetAccount(ctx, strings.TrimSpace(id))
	if getErr != nil {
		err = s.mapError(getErr)
		return nil, err
	}
	if !found {
		err = errAccountNotFound(id)
		return nil, err
	}

	client, clientErr := s.registry.GetOrCreate(ctx, account.Address)
	if clientErr != nil {
		err = s.mapError(clientErr)
		return nil, err
	}
	supported, chainsErr := client.GetSupportedChains(ctx, account.Address)
	if chainsErr != nil {
		err = s.mapError(chainsErr)
		return nil, err
	}

	supportedSet := make(map[string]struct{}, len(supported))
	for _, chain := range supported {
		supportedSet[canonicalChainID(chain)] = struct{}{}
	}
	chains = make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := supportedSet[canonicalChainID(candidate)]; ok {
			chains = append(chains, candidate)
		}
	}
	return chains, nil
}

// GetConnectedAccounts filters wallets by exact connection-detail match plus
// import origin. Pure read; a single mismatching field excludes the wallet.
func (s *Service) GetConnectedAccounts(ctx context.Context, details ConnectionDetails, origin string) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	wallets, err := s.accountStore.ListWallets(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	accounts := make([]Account, 0)
	for _, wallet := range wallets {
		if !details.Matches(wallet.Details) {
			continue
		}
		if wallet.Account.Options.Custodian.ImportOrigin != strings.TrimSpace(origin) {
			continue
		}
		accounts = append(accounts, wallet.Account)
	}
	return accounts, nil
}

// UpdateAccount is intentionally unsupported: custodial account state is
// owned by the custodian.
func (s *Service) UpdateAccount(context.Context, Account) error {
	return errNotImplemented("update_account")
}

// ApproveRequest is intentionally unsupported: approval happens out-of-band
// at the custodian.
func (s *Service) ApproveRequest(context.Context, string) error {
	return errNotImplemented("approve_request")
}

// RejectRequest is intentionally unsupported: rejection happens out-of-band
// at the custodian.
func (s *Service) RejectRequest(context.Context, string) error {
	return errNotImplemented("reject_request")
}

// canonicalChainID maps hex and decimal chain id representations onto one
// comparable form.
func canonicalChainID(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "0x") {
		if parsed, err := strconv.ParseUint(trimmed[2:], 16, 64); err == nil {
			return strconv.FormatUint(parsed, 10)
		}
		return trimmed
	}
	if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return strconv.FormatUint(parsed, 10)
	}
	return trimmed
}
