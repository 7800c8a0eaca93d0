package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-custody/core"
)

func TestGetAccountQuery_QueryDelegates(t *testing.T) {
	expected := core.Account{ID: "acct-1", Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}
	called := false
	reader := stubAccountReader{
		getFn: func(_ context.Context, id string) (core.Account, bool, error) {
			called = true
			if id != "acct-1" {
				t.Fatalf("unexpected account id %q", id)
			}
			return expected, true, nil
		},
	}

	result, err := NewGetAccountQuery(reader).Query(context.Background(), GetAccountMessage{AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("query account: %v", err)
	}
	if !called {
		t.Fatalf("expected account reader invocation")
	}
	if !result.Found || result.Account.ID != expected.ID {
		t.Fatalf("unexpected lookup result: %#v", result)
	}
}

func TestGetAccountQuery_UnknownIDIsNotAnError(t *testing.T) {
	reader := stubAccountReader{
		getFn: func(context.Context, string) (core.Account, bool, error) {
			return core.Account{}, false, nil
		},
	}

	result, err := NewGetAccountQuery(reader).Query(context.Background(), GetAccountMessage{AccountID: "missing"})
	if err != nil {
		t.Fatalf("query account: %v", err)
	}
	if result.Found {
		t.Fatalf("expected not-found lookup, got %#v", result)
	}
}

func TestAccountQueries_Delegate(t *testing.T) {
	calledConnected := false
	calledChains := false
	reader := stubAccountReader{
		connectedFn: func(_ context.Context, details core.ConnectionDetails, origin string) ([]core.Account, error) {
			calledConnected = true
			if details.RefreshToken != "refresh-token" || origin != "https://api.keyhaven.io" {
				t.Fatalf("unexpected connected input: %#v %q", details, origin)
			}
			return []core.Account{{ID: "acct-1"}}, nil
		},
		chainsFn: func(_ context.Context, id string, candidates []string) ([]string, error) {
			calledChains = true
			if id != "acct-1" || len(candidates) != 2 {
				t.Fatalf("unexpected chains input: %q %v", id, candidates)
			}
			return []string{"0x1"}, nil
		},
	}

	connected, err := NewGetConnectedAccountsQuery(reader).Query(context.Background(), GetConnectedAccountsMessage{
		Details: core.ConnectionDetails{RefreshToken: "refresh-token"},
		Origin:  "https://api.keyhaven.io",
	})
	if err != nil {
		t.Fatalf("connected accounts query: %v", err)
	}
	if !calledConnected || len(connected) != 1 {
		t.Fatalf("expected connected accounts delegation")
	}

	chains, err := NewFilterAccountChainsQuery(reader).Query(context.Background(), FilterAccountChainsMessage{
		AccountID: "acct-1",
		ChainIDs:  []string{"0x1", "137"},
	})
	if err != nil {
		t.Fatalf("filter chains query: %v", err)
	}
	if !calledChains || len(chains) != 1 || chains[0] != "0x1" {
		t.Fatalf("expected chain filter delegation, got %v", chains)
	}
}

func TestRequestQueries_Delegate(t *testing.T) {
	reader := stubRequestReader{
		getFn: func(_ context.Context, id string) (core.SigningRequest, bool, error) {
			if id != "req-1" {
				t.Fatalf("unexpected request id %q", id)
			}
			return core.SigningRequest{ID: id, Status: core.RequestStatusPending}, true, nil
		},
		listFn: func(context.Context) ([]core.SigningRequest, error) {
			return []core.SigningRequest{{ID: "req-1"}, {ID: "req-2"}}, nil
		},
	}

	lookup, err := NewGetRequestQuery(reader).Query(context.Background(), GetRequestMessage{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("get request query: %v", err)
	}
	if !lookup.Found || lookup.Request.Status != core.RequestStatusPending {
		t.Fatalf("unexpected request lookup: %#v", lookup)
	}

	requests, err := NewListRequestsQuery(reader).Query(context.Background(), ListRequestsMessage{})
	if err != nil {
		t.Fatalf("list requests query: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
}

func TestGetCustomerProofQuery_QueryDelegates(t *testing.T) {
	reader := stubCustomerProofReader{
		proofFn: func(_ context.Context, accountID string) (string, error) {
			if accountID != "acct-1" {
				t.Fatalf("unexpected account id %q", accountID)
			}
			return "proof-token", nil
		},
	}

	proof, err := NewGetCustomerProofQuery(reader).Query(context.Background(), GetCustomerProofMessage{AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("customer proof query: %v", err)
	}
	if proof != "proof-token" {
		t.Fatalf("unexpected proof %q", proof)
	}
}

func TestQueries_MissingReaderFails(t *testing.T) {
	if _, err := NewGetAccountQuery(nil).Query(context.Background(), GetAccountMessage{AccountID: "acct-1"}); err == nil {
		t.Fatalf("expected dependency error for account reader")
	}
	if _, err := NewListRequestsQuery(nil).Query(context.Background(), ListRequestsMessage{}); err == nil {
		t.Fatalf("expected dependency error for request reader")
	}
	if _, err := NewGetCustomerProofQuery(nil).Query(context.Background(), GetCustomerProofMessage{AccountID: "acct-1"}); err == nil {
		t.Fatalf("expected dependency error for customer proof reader")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "get account valid", msg: GetAccountMessage{AccountID: "acct-1"}, wantErr: false},
		{name: "get account missing id", msg: GetAccountMessage{}, wantErr: true},
		{name: "list accounts always valid", msg: ListAccountsMessage{}, wantErr: false},
		{name: "filter chains missing id", msg: FilterAccountChainsMessage{}, wantErr: true},
		{name: "get request missing id", msg: GetRequestMessage{}, wantErr: true},
		{name: "customer proof missing id", msg: GetCustomerProofMessage{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubAccountReader struct {
	getFn       func(ctx context.Context, id string) (core.Account, bool, error)
	listFn      func(ctx context.Context) ([]core.Account, error)
	connectedFn func(ctx context.Context, details core.ConnectionDetails, origin string) ([]core.Account, error)
	chainsFn    func(ctx context.Context, id string, candidates []string) ([]string, error)
}

func (s stubAccountReader) GetAccount(ctx context.Context, id string) (core.Account, bool, error) {
	if s.getFn == nil {
		return core.Account{}, false, fmt.Errorf("get account not configured")
	}
	return s.getFn(ctx, id)
}

func (s stubAccountReader) ListAccounts(ctx context.Context) ([]core.Account, error) {
	if s.listFn == nil {
		return nil, fmt.Errorf("list accounts not configured")
	}
	return s.listFn(ctx)
}

func (s stubAccountReader) GetConnectedAccounts(ctx context.Context, details core.ConnectionDetails, origin string) ([]core.Account, error) {
	if s.connectedFn == nil {
		return nil, fmt.Errorf("connected accounts not configured")
	}
	return s.connectedFn(ctx, details, origin)
}

func (s stubAccountReader) FilterAccountChains(ctx context.Context, id string, candidates []string) ([]string, error) {
	if s.chainsFn == nil {
		return nil, fmt.Errorf("filter chains not configured")
	}
	return s.chainsFn(ctx, id, candidates)
}

type stubRequestReader struct {
	getFn  func(ctx context.Context, id string) (core.SigningRequest, bool, error)
	listFn func(ctx context.Context) ([]core.SigningRequest, error)
}

func (s stubRequestReader) GetRequest(ctx context.Context, id string) (core.SigningRequest, bool, error) {
	if s.getFn == nil {
		return core.SigningRequest{}, false, fmt.Errorf("get request not configured")
	}
	return s.getFn(ctx, id)
}

func (s stubRequestReader) ListRequests(ctx context.Context) ([]core.SigningRequest, error) {
	if s.listFn == nil {
		return nil, fmt.Errorf("list requests not configured")
	}
	return s.listFn(ctx)
}

type stubCustomerProofReader struct {
	proofFn func(ctx context.Context, accountID string) (string, error)
}

func (s stubCustomerProofReader) GetCustomerProof(ctx context.Context, accountID string) (string, error) {
	if s.proofFn == nil {
		return "", fmt.Errorf("customer proof not configured")
	}
	return s.proofFn(ctx, accountID)
}

var (
	_ AccountReader       = stubAccountReader{}
	_ RequestReader       = stubRequestReader{}
	_ CustomerProofReader = stubCustomerProofReader{}
)
