// Package gen3 implements the current custodian wire protocol: JSON refresh
// grants and named JSON-RPC parameters under /v3/json-rpc.
package gen3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goliatone/go-custody/clients"
	"github.com/goliatone/go-custody/core"
)

const rpcPath = "v3/json-rpc"

type Client struct {
	base *clients.Base
}

// Factory returns the constructor wired into the service for gen3 custodians.
func Factory() core.ClientFactory {
	return func(cfg core.ClientConfig) (core.CustodianClient, error) {
		return New(cfg)
	}
}

func New(cfg core.ClientConfig) (*Client, error) {
	base, err := clients.NewBase(clients.BaseConfig{
		CustodianType:  core.CustodianTypeGen3,
		RPCPath:        rpcPath,
		RefreshRequest: buildRefreshRequest,
		Client:         cfg,
	})
	if err != nil {
		return nil, err
	}
	return &Client{base: base}, nil
}

// buildRefreshRequest encodes the refresh grant as a JSON document, which is
// what gen3 token endpoints accept.
func buildRefreshRequest(ctx context.Context, refreshTokenURL string, refreshToken string) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":   "refresh_token",
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshTokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) CustodianType() core.CustodianType {
	return c.base.CustodianType()
}

func (c *Client) Subscribe(listener core.TokenEventListener) func() {
	return c.base.Subscribe(listener)
}

type wireLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireAccount struct {
	Address string      `json:"address"`
	Name    string      `json:"name"`
	Labels  []wireLabel `json:"labels"`
}

type wireStatus struct {
	Finished    bool   `json:"finished"`
	Success     bool   `json:"success"`
	DisplayText string `json:"displayText"`
	Reason      string `json:"reason"`
}

type wireTransaction struct {
	ID     string     `json:"id"`
	Hash   string     `json:"hash"`
	From   string     `json:"from"`
	Status wireStatus `json:"status"`
}

type wireSignedMessage struct {
	ID        string     `json:"id"`
	From      string     `json:"from"`
	Signature string     `json:"signature"`
	Status    wireStatus `json:"status"`
}

type wireDeepLink struct {
	Text   string `json:"text"`
	ID     string `json:"id"`
	URL    string `json:"url"`
	Action string `json:"action"`
}

func (c *Client) ListAccounts(ctx context.Context) ([]core.CustodianAccount, error) {
	var out []wireAccount
	if err := c.base.Call(ctx, "custodian_listAccounts", map[string]any{}, &out); err != nil {
		return nil, err
	}
	accounts := make([]core.CustodianAccount, 0, len(out))
	for _, account := range out {
		labels := make([]string, 0, len(account.Labels))
		for _, label := range account.Labels {
			labels = append(labels, label.Value)
		}
		accounts = append(accounts, core.CustodianAccount{
			Address: account.Address,
			Name:    account.Name,
			Labels:  labels,
		})
	}
	return accounts, nil
}

type wireTransactionParams struct {
	From                 string `json:"from"`
	To                   string `json:"to,omitempty"`
	Value                string `json:"value,omitempty"`
	Data                 string `json:"data,omitempty"`
	GasLimit             string `json:"gas,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                string `json:"nonce,omitempty"`
	Type                 string `json:"type,omitempty"`
}

type wireTransactionMeta struct {
	ChainID          string `json:"chainId,omitempty"`
	Note             string `json:"note,omitempty"`
	Origin           string `json:"origin,omitempty"`
	DeferPublication bool   `json:"deferPublication"`
}

func toWireTransaction(payload core.TransactionPayload) wireTransactionParams {
	return wireTransactionParams{
		From:                 payload.From,
		To:                   payload.To,
		Value:                payload.Value,
		Data:                 payload.Data,
		GasLimit:             payload.GasLimit,
		GasPrice:             payload.GasPrice,
		MaxFeePerGas:         payload.MaxFeePerGas,
		MaxPriorityFeePerGas: payload.MaxPriorityFeePerGas,
		Nonce:                payload.Nonce,
		Type:                 payload.Type,
	}
}

func (c *Client) CreateTransaction(ctx context.Context, payload core.TransactionPayload, opts core.TransactionOptions) (core.CustodianTransaction, error) {
	params := map[string]any{
		"transaction": toWireTransaction(payload),
		"metadata": wireTransactionMeta{
			ChainID:          firstNonEmpty(opts.ChainID, payload.ChainID),
			Note:             opts.Note,
			Origin:           opts.Origin,
			DeferPublication: opts.DeferPublication,
		},
	}
	var out wireTransaction
	if err := c.base.Call(ctx, "custodian_createTransaction", params, &out); err != nil {
		return core.CustodianTransaction{}, err
	}
	return toCoreTransaction(out), nil
}

func (c *Client) ReplaceTransaction(ctx context.Context, custodianID string, payload core.TransactionPayload) (core.CustodianTransaction, error) {
	params := map[string]any{
		"transactionId": custodianID,
		"transaction":   toWireTransaction(payload),
	}
	var out wireTransaction
	if err := c.base.Call(ctx, "custodian_replaceTransaction", params, &out); err != nil {
		return core.CustodianTransaction{}, err
	}
	return toCoreTransaction(out), nil
}

func (c *Client) SignPersonalMessage(ctx context.Context, from string, message string) (core.SignedMessageDetails, error) {
	params := map[string]any{
		"address": from,
		"message": message,
	}
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_signPersonalMessage", params, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) SignTypedData(ctx context.Context, from string, payload json.RawMessage, version core.TypedDataVersion) (core.SignedMessageDetails, error) {
	params := map[string]any{
		"address": from,
		"payload": payload,
		"version": string(version),
	}
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_signTypedData", params, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) GetTransactionByID(ctx context.Context, custodianID string) (core.CustodianTransaction, error) {
	var out wireTransaction
	if err := c.base.Call(ctx, "custodian_getTransactionById", map[string]any{"id": custodianID}, &out); err != nil {
		return core.CustodianTransaction{}, err
	}
	return toCoreTransaction(out), nil
}

func (c *Client) GetSignedMessageByID(ctx context.Context, custodianID string) (core.SignedMessageDetails, error) {
	var out wireSignedMessage
	if err := c.base.Call(ctx, "custodian_getSignedMessageById", map[string]any{"id": custodianID}, &out); err != nil {
		return core.SignedMessageDetails{}, err
	}
	return toCoreSignedMessage(out), nil
}

func (c *Client) GetTransactionLink(ctx context.Context, custodianID string) (core.DeepLink, error) {
	var out wireDeepLink
	if err := c.base.Call(ctx, "custodian_getTransactionLink", map[string]any{"id": custodianID}, &out); err != nil {
		return core.DeepLink{}, err
	}
	return toCoreDeepLink(out), nil
}

func (c *Client) GetSignedMessageLink(ctx context.Context, custodianID string) (core.DeepLink, error) {
	var out wireDeepLink
	if err := c.base.Call(ctx, "custodian_getSignedMessageLink", map[string]any{"id": custodianID}, &out); err != nil {
		return core.DeepLink{}, err
	}
	return toCoreDeepLink(out), nil
}

func (c *Client) GetSupportedChains(ctx context.Context, address string) ([]string, error) {
	var out []string
	if err := c.base.Call(ctx, "custodian_listAccountChainIds", map[string]any{"address": address}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCustomerProof(ctx context.Context) (string, error) {
	var out struct {
		JWT string `json:"jwt"`
	}
	if err := c.base.Call(ctx, "custodian_getCustomerProof", map[string]any{}, &out); err != nil {
		return "", err
	}
	if out.JWT == "" {
		return "", fmt.Errorf("gen3: custodian returned empty customer proof")
	}
	return out.JWT, nil
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

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

var _ core.CustodianClient = (*Client)(nil)
