package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testClock }

// fakeClient is a scriptable CustodianClient for service-level tests.
type fakeClient struct {
	custodianType CustodianType
	broadcaster   *TokenEventBroadcaster

	listAccountsFn     func(ctx context.Context) ([]CustodianAccount, error)
	createTxFn         func(ctx context.Context, payload TransactionPayload, opts TransactionOptions) (CustodianTransaction, error)
	replaceTxFn        func(ctx context.Context, id string, payload TransactionPayload) (CustodianTransaction, error)
	signPersonalFn     func(ctx context.Context, from, message string) (SignedMessageDetails, error)
	signTypedFn        func(ctx context.Context, from string, payload json.RawMessage, version TypedDataVersion) (SignedMessageDetails, error)
	getTxFn            func(ctx context.Context, id string) (CustodianTransaction, error)
	getMessageFn       func(ctx context.Context, id string) (SignedMessageDetails, error)
	getTxLinkFn        func(ctx context.Context, id string) (DeepLink, error)
	getMessageLinkFn   func(ctx context.Context, id string) (DeepLink, error)
	supportedChainsFn  func(ctx context.Context, address string) ([]string, error)
	getCustomerProofFn func(ctx context.Context) (string, error)
}

func newFakeClient(custodianType CustodianType) *fakeClient {
	return &fakeClient{
		custodianType: custodianType,
		broadcaster:   NewTokenEventBroadcaster(),
	}
}

func (c *fakeClient) CustodianType() CustodianType { return c.custodianType }

func (c *fakeClient) ListAccounts(ctx context.Context) ([]CustodianAccount, error) {
	if c.listAccountsFn == nil {
		return nil, nil
	}
	return c.listAccountsFn(ctx)
}

func (c *fakeClient) CreateTransaction(ctx context.Context, payload TransactionPayload, opts TransactionOptions) (CustodianTransaction, error) {
	if c.createTxFn == nil {
		return CustodianTransaction{ID: "tx-1"}, nil
	}
	return c.createTxFn(ctx, payload, opts)
}

func (c *fakeClient) ReplaceTransaction(ctx context.Context, id string, payload TransactionPayload) (CustodianTransaction, error) {
	if c.replaceTxFn == nil {
		return CustodianTransaction{ID: "tx-replaced"}, nil
	}
	return c.replaceTxFn(ctx, id, payload)
}

func (c *fakeClient) SignPersonalMessage(ctx context.Context, from, message string) (SignedMessageDetails, error) {
	if c.signPersonalFn == nil {
		return SignedMessageDetails{ID: "msg-1", From: from}, nil
	}
	return c.signPersonalFn(ctx, from, message)
}

func (c *fakeClient) SignTypedData(ctx context.Context, from string, payload json.RawMessage, version TypedDataVersion) (SignedMessageDetails, error) {
	if c.signTypedFn == nil {
		return SignedMessageDetails{ID: "msg-typed", From: from}, nil
	}
	return c.signTypedFn(ctx, from, payload, version)
}

func (c *fakeClient) GetTransactionByID(ctx context.Context, id string) (CustodianTransaction, error) {
	if c.getTxFn == nil {
		return CustodianTransaction{ID: id}, nil
	}
	return c.getTxFn(ctx, id)
}

func (c *fakeClient) GetSignedMessageByID(ctx context.Context, id string) (SignedMessageDetails, error) {
	if c.getMessageFn == nil {
		return SignedMessageDetails{ID: id}, nil
	}
	return c.getMessageFn(ctx, id)
}

func (c *fakeClient) GetTransactionLink(ctx context.Context, id string) (DeepLink, error) {
	if c.getTxLinkFn == nil {
		return DeepLink{Text: "Approve transaction", ID: id, URL: "https://custodian.example/tx/" + id, Action: "view"}, nil
	}
	return c.getTxLinkFn(ctx, id)
}

func (c *fakeClient) GetSignedMessageLink(ctx context.Context, id string) (DeepLink, error) {
	if c.getMessageLinkFn == nil {
		return DeepLink{Text: "Approve message", ID: id, URL: "https://custodian.example/msg/" + id, Action: "view"}, nil
	}
	return c.getMessageLinkFn(ctx, id)
}

func (c *fakeClient) GetSupportedChains(ctx context.Context, address string) ([]string, error) {
	if c.supportedChainsFn == nil {
		return []string{"1"}, nil
	}
	return c.supportedChainsFn(ctx, address)
}

func (c *fakeClient) GetCustomerProof(ctx context.Context) (string, error) {
	if c.getCustomerProofFn == nil {
		return "proof-jwt", nil
	}
	return c.getCustomerProofFn(ctx)
}

func (c *fakeClient) Subscribe(listener TokenEventListener) func() {
	return c.broadcaster.Subscribe(listener)
}

var _ CustodianClient = (*fakeClient)(nil)

// captureRenderer records every rendered message.
type captureRenderer struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (r *captureRenderer) ShowInfoMessage(_ context.Context, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, text)
}

func (r *captureRenderer) ShowErrorMessage(_ context.Context, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, text)
}

func (r *captureRenderer) infoCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

func (r *captureRenderer) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// decisionNotifier returns a scripted registration decision.
type decisionNotifier struct {
	decision RegistrationDecision
	err      error
	created  []Account
	deleted  []string
}

func (n *decisionNotifier) AccountCreated(_ context.Context, account Account) (RegistrationDecision, error) {
	n.created = append(n.created, account)
	if n.err != nil {
		return RegistrationDecision{}, n.err
	}
	return n.decision, nil
}

func (n *decisionNotifier) AccountDeleted(_ context.Context, accountID string) error {
	n.deleted = append(n.deleted, accountID)
	return n.err
}

type testServiceConfig struct {
	environment string
	client      *fakeClient
	notifier    AccountNotifier
	options     []Option
}

func newTestService(t *testing.T, cfg testServiceConfig) (*Service, *fakeClient, *captureRenderer) {
	t.Helper()

	client := cfg.client
	if client == nil {
		client = newFakeClient(CustodianTypeGen3)
	}
	renderer := &captureRenderer{}
	environment := cfg.environment
	if environment == "" {
		environment = EnvironmentDevelopment
	}

	options := []Option{
		WithClientFactory(CustodianTypeGen3, func(ClientConfig) (CustodianClient, error) {
			return client, nil
		}),
		WithClientFactory(CustodianTypeGen1, func(ClientConfig) (CustodianClient, error) {
			return client, nil
		}),
		WithRenderer(renderer),
		WithClock(fixedNow),
	}
	if cfg.notifier != nil {
		options = append(options, WithAccountNotifier(cfg.notifier))
	}
	options = append(options, cfg.options...)

	service, err := NewService(Config{Environment: environment}, options...)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return service, client, renderer
}

func mustCreateAccount(t *testing.T, service *Service, address string) Account {
	t.Helper()
	account, err := service.CreateAccount(context.Background(), CreateAccountInput{
		Address: address,
		Name:    "Test Account",
		Details: ConnectionDetails{
			RefreshToken:    "refresh-token",
			APIBaseURL:      "https://api.keyhaven.io",
			CustodianType:   CustodianTypeGen3,
			RefreshTokenURL: "https://auth.keyhaven.io/token",
		},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}
