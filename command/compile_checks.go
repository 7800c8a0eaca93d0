package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateAccountMessage]      = (*CreateAccountCommand)(nil)
	_ gocmd.Commander[CreateAccountsMessage]     = (*CreateAccountsCommand)(nil)
	_ gocmd.Commander[DeleteAccountMessage]      = (*DeleteAccountCommand)(nil)
	_ gocmd.Commander[SubmitRequestMessage]      = (*SubmitRequestCommand)(nil)
	_ gocmd.Commander[ReplaceTransactionMessage] = (*ReplaceTransactionCommand)(nil)
	_ gocmd.Commander[PollRequestsMessage]       = (*PollRequestsCommand)(nil)
)
