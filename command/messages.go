package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-custody/core"
)

const (
	TypeCreateAccount      = "custody.command.account.create"
	TypeCreateAccounts     = "custody.command.account.create_batch"
	TypeDeleteAccount      = "custody.command.account.delete"
	TypeSubmitRequest      = "custody.command.request.submit"
	TypeReplaceTransaction = "custody.command.transaction.replace"
	TypePollRequests       = "custody.command.requests.poll"
)

type CreateAccountMessage struct {
	Input core.CreateAccountInput
}

func (CreateAccountMessage) Type() string { return TypeCreateAccount }

func (m CreateAccountMessage) Validate() error {
	return m.Input.Validate()
}

type CreateAccountsMessage struct {
	Inputs []core.CreateAccountInput
}

func (CreateAccountsMessage) Type() string { return TypeCreateAccounts }

func (m CreateAccountsMessage) Validate() error {
	if len(m.Inputs) == 0 {
		return fmt.Errorf("command: at least one account input is required")
	}
	return nil
}

type DeleteAccountMessage struct {
	AccountID string
}

func (DeleteAccountMessage) Type() string { return TypeDeleteAccount }

func (m DeleteAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	return nil
}

type SubmitRequestMessage struct {
	Input core.SubmitRequestInput
}

func (SubmitRequestMessage) Type() string { return TypeSubmitRequest }

func (m SubmitRequestMessage) Validate() error {
	if strings.TrimSpace(m.Input.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(string(m.Input.Method)) == "" {
		return fmt.Errorf("command: signing method is required")
	}
	return nil
}

type ReplaceTransactionMessage struct {
	AccountID   string
	CustodianID string
	Payload     core.TransactionPayload
}

func (ReplaceTransactionMessage) Type() string { return TypeReplaceTransaction }

func (m ReplaceTransactionMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(m.CustodianID) == "" {
		return fmt.Errorf("command: custodian transaction id is required")
	}
	return nil
}

type PollRequestsMessage struct{}

func (PollRequestsMessage) Type() string { return TypePollRequests }

func (PollRequestsMessage) Validate() error { return nil }
