package core

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type TypedDataVersion string

const (
	TypedDataV3 TypedDataVersion = "v3"
	TypedDataV4 TypedDataVersion = "v4"
)

// CustodianAccount is an account as reported by the custodian itself.
type CustodianAccount struct {
	Address string
	Name    string
	Labels  []string
}

// TransactionPayload mirrors the fields the custodian accepts for a new
// transaction. All numeric fields are hex or decimal strings as received from
// the caller; the wire clients encode them per protocol generation.
type TransactionPayload struct {
	From                 string
	To                   string
	Value                string
	Data                 string
	GasLimit             string
	GasPrice             string
	MaxFeePerGas         string
	MaxPriorityFeePerGas string
	Nonce                string
	ChainID              string
	Type                 string
}

type TransactionOptions struct {
	ChainID          string
	Note             string
	Origin           string
	DeferPublication bool
}

// CustodianClient is the uniform capability surface over one custodian
// endpoint, independent of wire-protocol generation. Implementations own the
// refresh-token state and emit token lifecycle events.
type CustodianClient interface {
	CustodianType() CustodianType

	ListAccounts(ctx context.Context) ([]CustodianAccount, error)
	CreateTransaction(ctx context.Context, payload TransactionPayload, opts TransactionOptions) (CustodianTransaction, error)
	ReplaceTransaction(ctx context.Context, custodianID string, payload TransactionPayload) (CustodianTransaction, error)
	SignPersonalMessage(ctx context.Context, from string, message string) (SignedMessageDetails, error)
	SignTypedData(ctx context.Context, from string, payload json.RawMessage, version TypedDataVersion) (SignedMessageDetails, error)
	GetTransactionByID(ctx context.Context, custodianID string) (CustodianTransaction, error)
	GetSignedMessageByID(ctx context.Context, custodianID string) (SignedMessageDetails, error)
	GetTransactionLink(ctx context.Context, custodianID string) (DeepLink, error)
	GetSignedMessageLink(ctx context.Context, custodianID string) (DeepLink, error)
	GetSupportedChains(ctx context.Context, address string) ([]string, error)
	GetCustomerProof(ctx context.Context) (string, error)

	// Subscribe registers a listener for token lifecycle events and returns
	// its cancel function. Rotation events are emitted synchronously inside
	// the refresh call that detected them.
	Subscribe(listener TokenEventListener) func()
}

// ClientConfig is the construction input for a wire client, sourced from a
// stored wallet connection.
type ClientConfig struct {
	RefreshToken    string
	APIBaseURL      string
	RefreshTokenURL string
	RequestTimeout  time.Duration
	HTTPClient      HTTPDoer
	Now             func() time.Time
}

// ClientFactory builds a CustodianClient for one protocol generation.
type ClientFactory func(cfg ClientConfig) (CustodianClient, error)

type TokenEventKind string

const (
	TokenEventRotated TokenEventKind = "refresh_token_rotated"
	TokenEventExpired TokenEventKind = "refresh_token_expired"
)

// TokenEvent reports a refresh-token lifecycle change observed by a wire
// client. For expired events OldRefreshTokenHash carries a fingerprint of the
// dead token, never the token itself.
type TokenEvent struct {
	Kind                TokenEventKind
	APIBaseURL          string
	OldRefreshToken     string
	NewRefreshToken     string
	OldRefreshTokenHash string
	ReauthURL           string
}

type TokenEventListener func(ctx context.Context, event TokenEvent)

// AccountStore is the external state collaborator owning account and wallet
// records. WithTransaction executes fn with all-or-nothing semantics for the
// writes issued through the store it passes in.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id string) (Account, bool, error)
	ListWallets(ctx context.Context) ([]WalletConnection, error)
	GetWalletByAddress(ctx context.Context, address string) (WalletConnection, bool, error)
	AddWallet(ctx context.Context, wallet WalletConnection) error
	RemoveAccounts(ctx context.Context, ids []string) error
	UpdateWalletDetails(ctx context.Context, accountID string, details ConnectionDetails) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error
}

// RequestStore is the external request-record collaborator.
type RequestStore interface {
	UpsertRequest(ctx context.Context, record SigningRequest) error
	GetRequest(ctx context.Context, id string) (SigningRequest, bool, error)
	ListRequests(ctx context.Context) ([]SigningRequest, error)
}

// RegistrationDecision is the outcome of proposing an account to the host
// application. Rejection is an expected outcome, not an error.
type RegistrationDecision struct {
	Accepted bool
	Reason   string
}

// AccountNotifier lets the host accept or veto account lifecycle changes
// before the keyring commits them locally.
type AccountNotifier interface {
	AccountCreated(ctx context.Context, account Account) (RegistrationDecision, error)
	AccountDeleted(ctx context.Context, accountID string) error
}

// Renderer is the fire-and-forget UI side-effect collaborator.
type Renderer interface {
	ShowInfoMessage(ctx context.Context, text string)
	ShowErrorMessage(ctx context.Context, text string)
}

// Registry caches one live client per normalized account address.
type Registry interface {
	GetOrCreate(ctx context.Context, address string) (CustodianClient, error)
	Invalidate(address string)
}

// RepositoryStoreFactory builds store implementations from a persistence
// client, matching the sqlstore factory wiring.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type StoreProvider interface {
	AccountStore() AccountStore
	RequestStore() RequestStore
}
