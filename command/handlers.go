package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-custody/core"
)

// MutatingService is the slice of the keyring surface the command layer
// drives.
type MutatingService interface {
	CreateAccount(ctx context.Context, in core.CreateAccountInput) (core.Account, error)
	CreateAccounts(ctx context.Context, inputs []core.CreateAccountInput) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	SubmitRequest(ctx context.Context, in core.SubmitRequestInput) (core.SubmitResult, error)
	ReplaceTransaction(ctx context.Context, accountID string, custodianID string, payload core.TransactionPayload) (core.SubmitResult, error)
	PollPendingRequests(ctx context.Context) (int, error)
}

type CreateAccountCommand struct {
	service MutatingService
}

func NewCreateAccountCommand(service MutatingService) *CreateAccountCommand {
	return &CreateAccountCommand{service: service}
}

func (c *CreateAccountCommand) Execute(ctx context.Context, msg CreateAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	out, err := c.service.CreateAccount(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateAccountsCommand struct {
	service MutatingService
}

func NewCreateAccountsCommand(service MutatingService) *CreateAccountsCommand {
	return &CreateAccountsCommand{service: service}
}

func (c *CreateAccountsCommand) Execute(ctx context.Context, msg CreateAccountsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	out, err := c.service.CreateAccounts(ctx, msg.Inputs)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteAccountCommand struct {
	service MutatingService
}

func NewDeleteAccountCommand(service MutatingService) *DeleteAccountCommand {
	return &DeleteAccountCommand{service: service}
}

func (c *DeleteAccountCommand) Execute(ctx context.Context, msg DeleteAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	return c.service.DeleteAccount(ctx, msg.AccountID)
}

type SubmitRequestCommand struct {
	service MutatingService
}

func NewSubmitRequestCommand(service MutatingService) *SubmitRequestCommand {
	return &SubmitRequestCommand{service: service}
}

func (c *SubmitRequestCommand) Execute(ctx context.Context, msg SubmitRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: request service is required")
	}
	out, err := c.service.SubmitRequest(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReplaceTransactionCommand struct {
	service MutatingService
}

func NewReplaceTransactionCommand(service MutatingService) *ReplaceTransactionCommand {
	return &ReplaceTransactionCommand{service: service}
}

func (c *ReplaceTransactionCommand) Execute(ctx context.Context, msg ReplaceTransactionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: request service is required")
	}
	out, err := c.service.ReplaceTransaction(ctx, msg.AccountID, msg.CustodianID, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PollRequestsCommand struct {
	service MutatingService
}

func NewPollRequestsCommand(service MutatingService) *PollRequestsCommand {
	return &PollRequestsCommand{service: service}
}

func (c *PollRequestsCommand) Execute(ctx context.Context, msg PollRequestsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: polling service is required")
	}
	out, err := c.service.PollPendingRequests(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
