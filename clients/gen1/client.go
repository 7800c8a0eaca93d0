// Package gen1 implements the legacy custodian wire protocol: form-encoded
// OAuth2 refresh grants and positional JSON-RPC parameters under /v1/json-rpc.
package gen1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-custody/clients"
	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
)

const rpcPath = "v1/json-rpc"

type Client struct {
	base *clients.Base
}

// Factory returns the constructor wired into the service for gen1 custodians.
func Factory() core.ClientFactory {
	return func(cfg core.ClientConfig) (core.CustodianClient, error) {
		return New(cfg)
	}
}

func New(cfg core.ClientConfig) (*Client, error) {
	base, err := clients.NewBase(clients.BaseConfig{
		CustodianType:  core.CustodianTypeGen1,
		RPCPath:        rpcPath,
		RefreshRequest: buildRefreshRequest,
		Client:         cfg,
	})
	if err != nil {
		return nil, err
	}
	return &Client{base: base}, nil
}

// buildRefreshRequest encodes the refresh grant as a standard OAuth2 form
// body, which is all gen1 token endpoints understand.
func buildRefreshRequest(ctx context.Context, refreshTokenURL string, refreshToken string) (*http.Request, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) CustodianType() core.CustodianType {
	return c.base.CustodianType()
}

func (c *Client) Subscribe(listener core.TokenEventListener) func() {
	return c.base.Subscribe(listener)
}

type wireAccount struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
}

type wireStatus struct {
	Finished    bool   `json:"finished"`
	Success     bool   `json:"success"`
	DisplayText string `json:"displayText"`
	Reason      string `json:"reason"`
}

type wireTransaction struct {
	ID     string     `json:"transactionId"`
	Hash   string     `json:"transactionHash"`
	From   string     `json:"from"`
	Status wireStatus `json:"transactionStatus"`
}

type wireSignedMessage struct {
	ID        string     `json:"signatureId"`
	From      string     `json:"from"`
	Signature string     `json:"signature"`
	Status    wireStatus `json:"signatureStatus"`
}

type wireDeepLink struct {
	Text   string `json:"text"`
	ID     string `json:"id"`
	URL    string `json:"url"`
	Action string `json:"action"`
}

func (c *Client) ListAccounts(ctx context.Context) ([]core.CustodianAccount, error) {
	var out []wireAccount
	if err := c.base.Call(ctx, "custodian_listAccounts", []any{}, &out); err != nil {
		return nil, err
	}
	accounts := make([]core.CustodianAccount, 0, len(out))
	for _, account := range out {
		accounts = append(accounts, core.CustodianAccount{
			Address: account.Address,
			Name:    account.Name,
			Labels:  account.Tags,
		})
	}
	return accounts, nil
}

type wireTransactionParams struct {
	From                 string `json:"from"`
	To                   string `json:"to,omitempty"`
	Value                string `json:"value,omitempty"`
	Data                 string `json:"data,omitempty"`
	GasLimit             string `json:"gasLimit,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                string `json:"nonce,omitempty"`
	ChainID              string `json:"chainId,omitempty"`
	Type                 string `json:"type,omitempty"`
}

func (c *Client) CreateTransaction(ctx context.Context, payload core.TransactionPayload, opts core.TransactionOptions) (core.CustodianTransaction, error) {
	chainID := payload.ChainID
	if chainID == "" {
		chainID = opts.ChainID
	}
	params := []any{
		wireTransactionParams{
			From:                 payload.From,
			To:                   payload.To,
			Value:                payload.Value,
			Data:                 payload.Data,
			GasLimit:             payload.GasLimit,
			GasPrice:             payload.GasPrice,
			MaxFeePerGas:         payload.MaxFeePerGas,
			MaxPriorityFeePerGas: payload.MaxPriorityFeePerGas,
			Nonce:                payload.Nonce,
			ChainID:              chainID,
			Type:                 payload.Type,
		},
		map[string]any{
			"note":             opts.Note,
			"origin":           opts.Origin,
			"deferPublication": opts.DeferPublication,
		},
	}
	var out wireTransaction
	if err := c.base.Call(ctx, "custodian_createTransaction", params, &out); err != nil {
		return core.CustodianTransaction{}, err
	}
	return toCoreTransaction(out), nil
}

// ReplaceTransaction is not part of the legacy protocol; replacements have to
// be performed in the custodian's own console.
func (c *Client) ReplaceTransaction(_ context.Context, custodianID string, _ core.TransactionPayload) (core.CustodianTransaction, error) {
	return core.CustodianTransaction{}, goerrors.New(
		"gen1: transaction replacement is not supported by this custodian: "+custodianID,
		goerrors.CategoryOperation,
	).WithTextCode(core.CustodyErrorMethodUnsupported).WithCode(http.StatusMethodNotAllowed)
}

func (c *Client) SignPersonalMessage(ctx context.Context, from string, message string) (core.SignedMessageDetails, error) {
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_sign", []any{from, message}, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) SignTypedData(ctx context.Context, from string, payload json.RawMessage, version core.TypedDataVersion) (core.SignedMessageDetails, error) {
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_signTypedData", []any{from, payload, string(version)}, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) GetTransactionByID(ctx context.Context, custodianID string) (core.CustodianTransaction, error) {
	var out wireTransaction
	if err := c.base.Call(ctx, "custodian_getTransactionById", []any{custodianID}, &out); err != nil {
		return core.CustodianTransaction{}, err
	}
	return toCoreTransaction(out), nil
}

func (c *Client) GetSignedMessageByID(ctx context.Context, custodianID string) (core.SignedMessageDetails, error) {
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_getSignedMessageById", []any{custodianID}, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) GetTransactionLink(ctx context.Context, custodianID string) (core.DeepLink, error) {
	var out wireDeepLink
	if err := c.base.Call(ctx, "custodian_getTransactionLink", []any{custodianID}, &out); err != nil {
		return core.DeepLink{}, err
	}
	return toCoreDeepLink(out), nil
}

func (c *Client) GetSignedMessageLink(ctx context.Context, custodianID string) (core.DeepLink, error) {
	var out wireDeepLink
	if err := c.base.Call(ctx, "custodian_getSignedMessageLink", []any{custodianID}, &out); err != nil {
		return core.DeepLink{}, err
	}
	return toCoreDeepLink(out), nil
}

func (c *Client) GetSupportedChains(ctx context.Context, address string) ([]string, error) {
	var out []string
	if err := c.base.Call(ctx, "custodian_listAccountChainIds", []any{address}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCustomerProof(ctx context.Context) (string, error) {
	var out string
	if err := c.base.Call(ctx, "custodian_getCustomerProof", []any{}, &out); err != nil {
		return "", err
	}
	return out, nil
}

func toCoreTransaction(in wireTransaction) core.CustodianTransaction {
	return core.CustodianTransaction{
		ID:     in.ID,
		Hash:   in.Hash,
		From:   in.From,
		Status: toCoreStatus(in.Status),
	}
}

func toCoreSignedMessage(in wireSignedMessage) core.SignedMessageDetails {
	return core.SignedMessageDetails{
		ID:        in.ID,
		From:      in.From,
		Signature: in.Signature,
		Status:    toCoreStatus(in.Status),
	}
}

func toCoreStatus(in wireStatus) core.CustodianStatus {
	return core.CustodianStatus{
		Finished:    in.Finished,
		Success:     in.Success,
		DisplayText: in.DisplayText,
		Reason:      in.Reason,
	}
}

func toCoreDeepLink(in wireDeepLink) core.DeepLink {
	return core.DeepLink{
		Text:   in.Text,
		ID:     in.ID,
		URL:    in.URL,
		Action: in.Action,
	}
}

var _ core.CustodianClient = (*Client)(nil)
