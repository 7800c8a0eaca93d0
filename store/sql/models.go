package sqlstore

import (
	"time"

	"github.com/goliatone/go-custody/core"
	"github.com/uptrace/bun"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:custody_accounts,alias:ca"`

	ID               string    `bun:"id,pk"`
	Address          string    `bun:"address,notnull"`
	Type             string    `bun:"type,notnull"`
	Methods          []string  `bun:"methods,type:jsonb,notnull"`
	AccountName      string    `bun:"account_name"`
	EnvironmentName  string    `bun:"environment_name"`
	DisplayName      string    `bun:"display_name"`
	DeferPublication bool      `bun:"defer_publication,notnull"`
	ImportOrigin     string    `bun:"import_origin"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type walletConnectionRecord struct {
	bun.BaseModel `bun:"table:custody_wallet_connections,alias:cwc"`

	ID              string    `bun:"id,pk"`
	AccountID       string    `bun:"account_id,notnull"`
	RefreshToken    string    `bun:"refresh_token,notnull"`
	APIBaseURL      string    `bun:"api_base_url,notnull"`
	CustodianType   string    `bun:"custodian_type,notnull"`
	RefreshTokenURL string    `bun:"refresh_token_url,notnull"`
	Environment     string    `bun:"environment"`
	DisplayName     string    `bun:"display_name"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type signingRequestRecord struct {
	bun.BaseModel `bun:"table:custody_signing_requests,alias:csr"`

	ID          string                     `bun:"id,pk"`
	AccountID   string                     `bun:"account_id,notnull"`
	Address     string                     `bun:"address,notnull"`
	CustodianID string                     `bun:"custodian_id"`
	Type        string                     `bun:"type,notnull"`
	SubType     string                     `bun:"sub_type"`
	Status      string                     `bun:"status,notnull"`
	Signature   string                     `bun:"signature"`
	Message     *core.SignedMessageDetails `bun:"message,type:jsonb"`
	Transaction *core.CustodianTransaction `bun:"transaction_details,type:jsonb"`
	Payload     map[string]any             `bun:"payload,type:jsonb"`
	CreatedAt   time.Time                  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	LastUpdated time.Time                  `bun:"last_updated,nullzero,notnull,default:current_timestamp"`
}

func newAccountRecord(account core.Account) *accountRecord {
	methods := make([]string, 0, len(account.Methods))
	for _, method := range account.Methods {
		methods = append(methods, string(method))
	}
	return &accountRecord{
		ID:               account.ID,
		Address:          account.Address,
		Type:             account.Type,
		Methods:          methods,
		AccountName:      account.Options.AccountName,
		EnvironmentName:  account.Options.Custodian.EnvironmentName,
		DisplayName:      account.Options.Custodian.DisplayName,
		DeferPublication: account.Options.Custodian.DeferPublication,
		ImportOrigin:     account.Options.Custodian.ImportOrigin,
		CreatedAt:        account.CreatedAt,
		UpdatedAt:        account.UpdatedAt,
	}
}

func (r *accountRecord) toDomain() core.Account {
	if r == nil {
		return core.Account{}
	}
	methods := make([]core.SigningMethod, 0, len(r.Methods))
	for _, method := range r.Methods {
		methods = append(methods, core.SigningMethod(method))
	}
	return core.Account{
		ID:      r.ID,
		Address: r.Address,
		Type:    r.Type,
		Methods: methods,
		Options: core.AccountOptions{
			Custodian: core.CustodianOptions{
				EnvironmentName:  r.EnvironmentName,
				DisplayName:      r.DisplayName,
				DeferPublication: r.DeferPublication,
				ImportOrigin:     r.ImportOrigin,
			},
			AccountName: r.AccountName,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *walletConnectionRecord) toDetails() core.ConnectionDetails {
	if r == nil {
		return core.ConnectionDetails{}
	}
	return core.ConnectionDetails{
		RefreshToken:    r.RefreshToken,
		APIBaseURL:      r.APIBaseURL,
		CustodianType:   core.CustodianType(r.CustodianType),
		RefreshTokenURL: r.RefreshTokenURL,
		Environment:     r.Environment,
		DisplayName:     r.DisplayName,
	}
}

func newSigningRequestRecord(request core.SigningRequest) *signingRequestRecord {
	return &signingRequestRecord{
		ID:          request.ID,
		AccountID:   request.AccountID,
		Address:     request.Address,
		CustodianID: request.CustodianID,
		Type:        string(request.Type),
		SubType:     string(request.SubType),
		Status:      string(request.Status),
		Signature:   request.Signature,
		Message:     request.Message,
		Transaction: request.Transaction,
		Payload:     request.Payload,
		CreatedAt:   request.CreatedAt,
		LastUpdated: request.LastUpdated,
	}
}

func (r *signingRequestRecord) toDomain() core.SigningRequest {
	if r == nil {
		return core.SigningRequest{}
	}
	return core.SigningRequest{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Address:     r.Address,
		CustodianID: r.CustodianID,
		Type:        core.RequestType(r.Type),
		SubType:     core.MessageSubType(r.SubType),
		Status:      core.SigningRequestStatus(r.Status),
		Signature:   r.Signature,
		Message:     r.Message,
		Transaction: r.Transaction,
		Payload:     r.Payload,
		CreatedAt:   r.CreatedAt,
		LastUpdated: r.LastUpdated,
	}
}
