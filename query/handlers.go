package query

import (
	"context"

	"github.com/goliatone/go-custody/core"
)

type AccountReader interface {
	GetAccount(ctx context.Context, id string) (core.Account, bool, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetConnectedAccounts(ctx context.Context, details core.ConnectionDetails, origin string) ([]core.Account, error)
	FilterAccountChains(ctx context.Context, id string, candidates []string) ([]string, error)
}

type RequestReader interface {
	GetRequest(ctx context.Context, id string) (core.SigningRequest, bool, error)
	ListRequests(ctx context.Context) ([]core.SigningRequest, error)
}

type CustomerProofReader interface {
	GetCustomerProof(ctx context.Context, accountID string) (string, error)
}

// AccountLookup carries the found flag alongside the account so an unknown id
// stays a non-error outcome through the query layer.
type AccountLookup struct {
	Account core.Account
	Found   bool
}

type RequestLookup struct {
	Request core.SigningRequest
	Found   bool
}

type GetAccountQuery struct {
	reader AccountReader
}

func NewGetAccountQuery(reader AccountReader) *GetAccountQuery {
	return &GetAccountQuery{reader: reader}
}

func (q *GetAccountQuery) Query(ctx context.Context, msg GetAccountMessage) (AccountLookup, error) {
	if q == nil || q.reader == nil {
		return AccountLookup{}, queryDependencyError("query: account reader is required")
	}
	account, found, err := q.reader.GetAccount(ctx, msg.AccountID)
	if err != nil {
		return AccountLookup{}, err
	}
	return AccountLookup{Account: account, Found: found}, nil
}

type ListAccountsQuery struct {
	reader AccountReader
}

func NewListAccountsQuery(reader AccountReader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, _ ListAccountsMessage) ([]core.Account, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.ListAccounts(ctx)
}

type GetConnectedAccountsQuery struct {
	reader AccountReader
}

func NewGetConnectedAccountsQuery(reader AccountReader) *GetConnectedAccountsQuery {
	return &GetConnectedAccountsQuery{reader: reader}
}

func (q *GetConnectedAccountsQuery) Query(
	ctx context.Context,
	msg GetConnectedAccountsMessage,
) ([]core.Account, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.GetConnectedAccounts(ctx, msg.Details, msg.Origin)
}

type FilterAccountChainsQuery struct {
	reader AccountReader
}

func NewFilterAccountChainsQuery(reader AccountReader) *FilterAccountChainsQuery {
	return &FilterAccountChainsQuery{reader: reader}
}

func (q *FilterAccountChainsQuery) Query(
	ctx context.Context,
	msg FilterAccountChainsMessage,
) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.FilterAccountChains(ctx, msg.AccountID, msg.ChainIDs)
}

type GetRequestQuery struct {
	reader RequestReader
}

func NewGetRequestQuery(reader RequestReader) *GetRequestQuery {
	return &GetRequestQuery{reader: reader}
}

func (q *GetRequestQuery) Query(ctx context.Context, msg GetRequestMessage) (RequestLookup, error) {
	if q == nil || q.reader == nil {
		return RequestLookup{}, queryDependencyError("query: request reader is required")
	}
	request, found, err := q.reader.GetRequest(ctx, msg.RequestID)
	if err != nil {
		return RequestLookup{}, err
	}
	return RequestLookup{Request: request, Found: found}, nil
}

type ListRequestsQuery struct {
	reader RequestReader
}

func NewListRequestsQuery(reader RequestReader) *ListRequestsQuery {
	return &ListRequestsQuery{reader: reader}
}

func (q *ListRequestsQuery) Query(ctx context.Context, _ ListRequestsMessage) ([]core.SigningRequest, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: request reader is required")
	}
	return q.reader.ListRequests(ctx)
}

type GetCustomerProofQuery struct {
	reader CustomerProofReader
}

func NewGetCustomerProofQuery(reader CustomerProofReader) *GetCustomerProofQuery {
	return &GetCustomerProofQuery{reader: reader}
}

func (q *GetCustomerProofQuery) Query(ctx context.Context, msg GetCustomerProofMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: customer proof reader is required")
	}
	return q.reader.GetCustomerProof(ctx, msg.AccountID)
}
