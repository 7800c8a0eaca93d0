// Package custody wires the custodial signing keyring together: the core
// service, the protocol-generation client factories and the command/query
// surface hosts consume.
package custody

import (
	"fmt"

	"github.com/goliatone/go-custody/clients/gen1"
	"github.com/goliatone/go-custody/clients/gen3"
	custodycommand "github.com/goliatone/go-custody/command"
	"github.com/goliatone/go-custody/core"
	custodyquery "github.com/goliatone/go-custody/query"
)

// New builds the keyring service with both protocol generations registered.
// Additional options are applied after the defaults, so callers can override
// either factory.
func New(cfg core.Config, options ...core.Option) (*core.Service, error) {
	defaults := []core.Option{
		core.WithClientFactory(core.CustodianTypeGen1, gen1.Factory()),
		core.WithClientFactory(core.CustodianTypeGen3, gen3.Factory()),
	}
	return core.NewService(cfg, append(defaults, options...)...)
}

type CommandQueryService interface {
	custodycommand.MutatingService
	custodyquery.AccountReader
	custodyquery.RequestReader
	custodyquery.CustomerProofReader
}

type Commands struct {
	CreateAccount      *custodycommand.CreateAccountCommand
	CreateAccounts     *custodycommand.CreateAccountsCommand
	DeleteAccount      *custodycommand.DeleteAccountCommand
	SubmitRequest      *custodycommand.SubmitRequestCommand
	ReplaceTransaction *custodycommand.ReplaceTransactionCommand
	PollRequests       *custodycommand.PollRequestsCommand
}

type Queries struct {
	GetAccount           *custodyquery.GetAccountQuery
	ListAccounts         *custodyquery.ListAccountsQuery
	GetConnectedAccounts *custodyquery.GetConnectedAccountsQuery
	FilterAccountChains  *custodyquery.FilterAccountChainsQuery
	GetRequest           *custodyquery.GetRequestQuery
	ListRequests         *custodyquery.ListRequestsQuery
	GetCustomerProof     *custodyquery.GetCustomerProofQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("custody: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateAccount:      custodycommand.NewCreateAccountCommand(service),
		CreateAccounts:     custodycommand.NewCreateAccountsCommand(service),
		DeleteAccount:      custodycommand.NewDeleteAccountCommand(service),
		SubmitRequest:      custodycommand.NewSubmitRequestCommand(service),
		ReplaceTransaction: custodycommand.NewReplaceTransactionCommand(service),
		PollRequests:       custodycommand.NewPollRequestsCommand(service),
	}
	facade.queries = Queries{
		GetAccount:           custodyquery.NewGetAccountQuery(service),
		ListAccounts:         custodyquery.NewListAccountsQuery(service),
		GetConnectedAccounts: custodyquery.NewGetConnectedAccountsQuery(service),
		FilterAccountChains:  custodyquery.NewFilterAccountChainsQuery(service),
		GetRequest:           custodyquery.NewGetRequestQuery(service),
		ListRequests:         custodyquery.NewListRequestsQuery(service),
		GetCustomerProof:     custodyquery.NewGetCustomerProofQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*core.Service)(nil)
