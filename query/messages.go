package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-custody/core"
)

const (
	TypeGetAccount           = "custody.query.account.get"
	TypeListAccounts         = "custody.query.account.list"
	TypeGetConnectedAccounts = "custody.query.account.connected"
	TypeFilterAccountChains  = "custody.query.account.chains"
	TypeGetRequest           = "custody.query.request.get"
	TypeListRequests         = "custody.query.request.list"
	TypeGetCustomerProof     = "custody.query.customer_proof.get"
)

type GetAccountMessage struct {
	AccountID string
}

func (GetAccountMessage) Type() string { return TypeGetAccount }

func (m GetAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type ListAccountsMessage struct{}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (ListAccountsMessage) Validate() error { return nil }

type GetConnectedAccountsMessage struct {
	Details core.ConnectionDetails
	Origin  string
}

func (GetConnectedAccountsMessage) Type() string { return TypeGetConnectedAccounts }

func (m GetConnectedAccountsMessage) Validate() error {
	return m.Details.Validate()
}

type FilterAccountChainsMessage struct {
	AccountID string
	ChainIDs  []string
}

func (FilterAccountChainsMessage) Type() string { return TypeFilterAccountChains }

func (m FilterAccountChainsMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type GetRequestMessage struct {
	RequestID string
}

func (GetRequestMessage) Type() string { return TypeGetRequest }

func (m GetRequestMessage) Validate() error {
	if strings.TrimSpace(m.RequestID) == "" {
		return fmt.Errorf("query: request id is required")
	}
	return nil
}

type ListRequestsMessage struct{}

func (ListRequestsMessage) Type() string { return TypeListRequests }

func (ListRequestsMessage) Validate() error { return nil }

type GetCustomerProofMessage struct {
	AccountID string
}

func (GetCustomerProofMessage) Type() string { return TypeGetCustomerProof }

func (m GetCustomerProofMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}
