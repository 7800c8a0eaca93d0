package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type PersonalSignParams struct {
	Message string
}

type TypedDataParams struct {
	Payload json.RawMessage
	Version TypedDataVersion
}

// SubmitRequestInput carries one signing or transaction submission. Exactly
// one of the params fields must be set, matching the method.
type SubmitRequestInput struct {
	AccountID          string
	Method             SigningMethod
	PersonalSign       *PersonalSignParams
	TypedData          *TypedDataParams
	Transaction        *TransactionPayload
	TransactionOptions TransactionOptions
}

// SubmitResult reports a submission accepted by the custodian. Pending is
// always true on success: custodial requests never resolve synchronously.
type SubmitResult struct {
	Pending  bool
	Request  SigningRequest
	DeepLink DeepLink
}

// SubmitRequest forwards a signing or transaction request to the custodian
// that owns the account, records it locally as pending and surfaces a deep
// link so the user can approve it on the custodian side.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitRequestInput) (result SubmitResult, err error) {
	if s == nil {
		return SubmitResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"account_id": in.AccountID,
		"method":     string(in.Method),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "request_submit", err, fields)
	}()

	account, found, getErr := s.accountStore.GetAccount(ctx, strings.TrimSpace(in.AccountID))
	if getErr != nil {
		err = s.submitError(getErr)
		return SubmitResult{}, err
	}
	if !found {
		err = s.submitError(errAccountNotFound(in.AccountID))
		return SubmitResult{}, err
	}
	if !account.SupportsMethod(in.Method) {
		err = s.submitError(errMethodUnsupported(in.Method))
		return SubmitResult{}, err
	}

	client, clientErr := s.registry.GetOrCreate(ctx, account.Address)
	if clientErr != nil {
		err = s.submitError(clientErr)
		return SubmitResult{}, err
	}

	record, dispatchErr := s.dispatchRequest(ctx, client, account, in)
	if dispatchErr != nil {
		err = s.submitError(dispatchErr)
		return SubmitResult{}, err
	}

	if upsertErr := s.requestStore.UpsertRequest(ctx, record); upsertErr != nil {
		err = s.submitError(upsertErr)
		return SubmitResult{}, err
	}

	link := s.deepLinks.Resolve(ctx, client, record.Type, record.CustodianID)
	s.renderer.ShowInfoMessage(ctx, link.Text)

	return SubmitResult{
		Pending:  true,
		Request:  record,
		DeepLink: link,
	}, nil
}

// dispatchRequest performs the custodian call for the requested method and
// builds the local pending record from the custodian's response.
func (s *Service) dispatchRequest(ctx context.Context, client CustodianClient, account Account, in SubmitRequestInput) (SigningRequest, error) {
	now := s.now()
	record := SigningRequest{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Address:     account.Address,
		Status:      RequestStatusPending,
		CreatedAt:   now,
		LastUpdated: now,
	}

	switch in.Method {
	case MethodPersonalSign:
		if in.PersonalSign == nil {
			return SigningRequest{}, badSubmitInput("personal sign params are required")
		}
		details, err := client.SignPersonalMessage(ctx, account.Address, in.PersonalSign.Message)
		if err != nil {
			return SigningRequest{}, err
		}
		record.Type = RequestTypeMessage
		record.SubType = SubTypePersonalSign
		record.CustodianID = details.ID
		record.Message = &details
		record.Payload = map[string]any{
			"from":    account.Address,
			"message": in.PersonalSign.Message,
		}

	case MethodSignTypedDataV3, MethodSignTypedDataV4:
		if in.TypedData == nil || len(in.TypedData.Payload) == 0 {
			return SigningRequest{}, badSubmitInput("typed data payload is required")
		}
		version := TypedDataV3
		subType := SubTypeTypedDataV3
		if in.Method == MethodSignTypedDataV4 {
			version = TypedDataV4
			subType = SubTypeTypedDataV4
		}
		if in.TypedData.Version != "" && in.TypedData.Version != version {
			return SigningRequest{}, badSubmitInput("typed data version does not match signing method")
		}
		details, err := client.SignTypedData(ctx, account.Address, in.TypedData.Payload, version)
		if err != nil {
			return SigningRequest{}, err
		}
		record.Type = RequestTypeMessage
		record.SubType = subType
		record.CustodianID = details.ID
		record.Message = &details
		record.Payload = map[string]any{
			"from":    account.Address,
			"payload": json.RawMessage(in.TypedData.Payload),
			"version": string(version),
		}

	case MethodSignTransaction:
		if in.Transaction == nil {
			return SigningRequest{}, badSubmitInput("transaction payload is required")
		}
		payload := *in.Transaction
		if strings.TrimSpace(payload.From) == "" {
			payload.From = account.Address
		} else if !strings.EqualFold(payload.From, account.Address) {
			return SigningRequest{}, badSubmitInput("transaction sender does not match account address")
		}
		opts := in.TransactionOptions
		opts.DeferPublication = account.Options.Custodian.DeferPublication
		transaction, err := client.CreateTransaction(ctx, payload, opts)
		if err != nil {
			return SigningRequest{}, err
		}
		record.Type = RequestTypeTransaction
		record.CustodianID = transaction.ID
		record.Transaction = &transaction
		record.Payload = map[string]any{
			"from":     payload.From,
			"to":       payload.To,
			"value":    payload.Value,
			"chain_id": payload.ChainID,
		}

	default:
		return SigningRequest{}, errMethodUnsupported(in.Method)
	}

	return record, nil
}

// ReplaceTransaction asks the custodian to replace a previously submitted
// transaction (speed-up or cancel) and records the replacement as pending.
func (s *Service) ReplaceTransaction(ctx context.Context, accountID string, custodianID string, payload TransactionPayload) (result SubmitResult, err error) {
	if s == nil {
		return SubmitResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"account_id": accountID}
	defer func() {
		s.observeOperation(ctx, startedAt, "transaction_replace", err, fields)
	}()

	account, found, getErr := s.accountStore.GetAccount(ctx, strings.TrimSpace(accountID))
	if getErr != nil {
		err = s.submitError(getErr)
		return SubmitResult{}, err
	}
	if !found {
		err = s.submitError(errAccountNotFound(accountID))
		return SubmitResult{}, err
	}

	client, clientErr := s.registry.GetOrCreate(ctx, account.Address)
	if clientErr != nil {
		err = s.submitError(clientErr)
		return SubmitResult{}, err
	}
	transaction, replaceErr := client.ReplaceTransaction(ctx, strings.TrimSpace(custodianID), payload)
	if replaceErr != nil {
		err = s.submitError(replaceErr)
		return SubmitResult{}, err
	}

	now := s.now()
	record := SigningRequest{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Address:     account.Address,
		CustodianID: transaction.ID,
		Type:        RequestTypeTransaction,
		Status:      RequestStatusPending,
		Transaction: &transaction,
		Payload: map[string]any{
			"from":     account.Address,
			"replaces": custodianID,
		},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if upsertErr := s.requestStore.UpsertRequest(ctx, record); upsertErr != nil {
		err = s.submitError(upsertErr)
		return SubmitResult{}, err
	}

	link := s.deepLinks.Resolve(ctx, client, record.Type, record.CustodianID)
	s.renderer.ShowInfoMessage(ctx, link.Text)
	return SubmitResult{Pending: true, Request: record, DeepLink: link}, nil
}

// GetCustomerProof fetches the custodian-issued ownership proof token for the
// account's connection.
func (s *Service) GetCustomerProof(ctx context.Context, accountID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	account, found, err := s.accountStore.GetAccount(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return "", s.mapError(err)
	}
	if !found {
		return "", errAccountNotFound(accountID)
	}
	client, err := s.registry.GetOrCreate(ctx, account.Address)
	if err != nil {
		return "", s.mapError(err)
	}
	proof, err := client.GetCustomerProof(ctx)
	if err != nil {
		return "", s.mapError(err)
	}
	return proof, nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (SigningRequest, bool, error) {
	if s == nil {
		return SigningRequest{}, false, fmt.Errorf("core: service is nil")
	}
	record, found, err := s.requestStore.GetRequest(ctx, strings.TrimSpace(id))
	if err != nil {
		return SigningRequest{}, false, s.mapError(err)
	}
	return record, found, nil
}

func (s *Service) ListRequests(ctx context.Context) ([]SigningRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	records, err := s.requestStore.ListRequests(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return records, nil
}

// submitError applies the submission error policy: caller-actionable failures
// pass through verbatim, everything else is replaced with an opaque message in
// strict mode so custodian internals never reach the calling origin.
func (s *Service) submitError(err error) error {
	mapped := s.mapError(err)
	if mapped == nil {
		return nil
	}
	if !s.config.Strict() || IsPassthroughError(mapped) {
		return mapped
	}
	return goerrors.New(opaqueSubmitMessage, goerrors.CategoryInternal).
		WithTextCode(CustodyErrorInternal).
		WithCode(http.StatusInternalServerError)
}

func badSubmitInput(message string) *goerrors.Error {
	return goerrors.New("core: "+message, goerrors.CategoryBadInput).
		WithTextCode(CustodyErrorBadInput).
		WithCode(http.StatusBadRequest)
}
