package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCustodianType           = errors.New("core: invalid custodian type")
	ErrInvalidSigningMethod           = errors.New("core: invalid signing method")
	ErrInvalidRequestStatusTransition = errors.New("core: invalid signing request status transition")
)

// CustodianType selects the wire-protocol generation a custodian speaks.
type CustodianType string

const (
	CustodianTypeGen1 CustodianType = "gen1"
	CustodianTypeGen3 CustodianType = "gen3"
)

func (t CustodianType) Validate() error {
	switch t {
	case CustodianTypeGen1, CustodianTypeGen3:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCustodianType, string(t))
	}
}

type SigningMethod string

const (
	MethodPersonalSign    SigningMethod = "personal_sign"
	MethodSignTypedDataV3 SigningMethod = "eth_signTypedData_v3"
	MethodSignTypedDataV4 SigningMethod = "eth_signTypedData_v4"
	MethodSignTransaction SigningMethod = "eth_signTransaction"
)

// DefaultSigningMethods is the capability set assigned to newly created
// custodial accounts. Custodians approve per-request, so every account starts
// with the full surface.
func DefaultSigningMethods() []SigningMethod {
	return []SigningMethod{
		MethodPersonalSign,
		MethodSignTypedDataV3,
		MethodSignTypedDataV4,
		MethodSignTransaction,
	}
}

const AccountTypeEOA = "eoa"

type CustodianOptions struct {
	EnvironmentName  string
	DisplayName      string
	DeferPublication bool
	ImportOrigin     string
}

type AccountOptions struct {
	Custodian   CustodianOptions
	AccountName string
}

// Account is a custodial account surfaced to the wallet. The keyring never
// holds its key material; signing is delegated to the custodian that owns it.
type Account struct {
	ID        string
	Address   string
	Type      string
	Methods   []SigningMethod
	Options   AccountOptions
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) SupportsMethod(method SigningMethod) bool {
	for _, supported := range a.Methods {
		if supported == method {
			return true
		}
	}
	return false
}

// ConnectionDetails carries the credentials and endpoints binding one account
// to its custodian. RefreshToken is the only mutable field after creation; it
// changes when the custodian rotates the session.
type ConnectionDetails struct {
	RefreshToken    string
	APIBaseURL      string
	CustodianType   CustodianType
	RefreshTokenURL string
	Environment     string
	DisplayName     string
}

func (d ConnectionDetails) Validate() error {
	if strings.TrimSpace(d.RefreshToken) == "" {
		return fmt.Errorf("core: refresh token is required")
	}
	if strings.TrimSpace(d.APIBaseURL) == "" {
		return fmt.Errorf("core: custodian api url is required")
	}
	if strings.TrimSpace(d.RefreshTokenURL) == "" {
		return fmt.Errorf("core: refresh token url is required")
	}
	return d.CustodianType.Validate()
}

// Matches reports whether every connection field of other equals d. Used by
// connected-account filtering, where a single mismatching field excludes the
// wallet.
func (d ConnectionDetails) Matches(other ConnectionDetails) bool {
	return d.RefreshToken == other.RefreshToken &&
		d.APIBaseURL == other.APIBaseURL &&
		d.CustodianType == other.CustodianType &&
		d.Environment == other.Environment
}

type WalletConnection struct {
	Account   Account
	Details   ConnectionDetails
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RequestType string

const (
	RequestTypeMessage     RequestType = "message"
	RequestTypeTransaction RequestType = "transaction"
)

type MessageSubType string

const (
	SubTypePersonalSign MessageSubType = "personal_sign"
	SubTypeTypedDataV3  MessageSubType = "v3"
	SubTypeTypedDataV4  MessageSubType = "v4"
)

type SigningRequestStatus string

const (
	RequestStatusPending   SigningRequestStatus = "pending"
	RequestStatusFulfilled SigningRequestStatus = "fulfilled"
	RequestStatusRejected  SigningRequestStatus = "rejected"
)

// CustodianStatus is the custodian-side resolution state attached to a
// transaction or signed message.
type CustodianStatus struct {
	Finished    bool
	Success     bool
	DisplayText string
	Reason      string
}

type SignedMessageDetails struct {
	ID        string
	From      string
	Signature string
	Status    CustodianStatus
}

type CustodianTransaction struct {
	ID     string
	Hash   string
	From   string
	Status CustodianStatus
}

// SigningRequest is the locally persisted record of one delegated signing or
// transaction submission. The keyring creates it pending; the polling path
// owns every mutation after that.
type SigningRequest struct {
	ID          string
	AccountID   string
	Address     string
	CustodianID string
	Type        RequestType
	SubType     MessageSubType
	Status      SigningRequestStatus
	Signature   string
	Message     *SignedMessageDetails
	Transaction *CustodianTransaction
	Payload     map[string]any
	CreatedAt   time.Time
	LastUpdated time.Time
}

func (r SigningRequest) Fulfilled() bool {
	return r.Status == RequestStatusFulfilled
}

func (r SigningRequest) Rejected() bool {
	return r.Status == RequestStatusRejected
}

func (r *SigningRequest) TransitionTo(status SigningRequestStatus, now time.Time) error {
	if r == nil {
		return nil
	}
	if r.Status == status {
		r.LastUpdated = now
		return nil
	}
	if !requestTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRequestStatusTransition, r.Status, status)
	}
	r.Status = status
	r.LastUpdated = now
	return nil
}

func requestTransitionAllowed(current, next SigningRequestStatus) bool {
	allowed := map[SigningRequestStatus]map[SigningRequestStatus]struct{}{
		RequestStatusPending: {
			RequestStatusFulfilled: {},
			RequestStatusRejected:  {},
		},
		RequestStatusFulfilled: {},
		RequestStatusRejected:  {},
	}
	_, ok := allowed[current][next]
	return ok
}

// DeepLink points the user at the custodian surface where a pending request
// can be approved.
type DeepLink struct {
	Text   string
	ID     string
	URL    string
	Action string
}
