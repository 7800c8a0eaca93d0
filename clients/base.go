// Package clients holds the transport shared by every custodian wire client:
// refresh-grant token acquisition, the JSON-RPC envelope and token lifecycle
// event emission. Generation-specific packages layer their parameter shapes
// on top.
package clients

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
)

// maxResponseBytes caps how much of any custodian response is read.
const maxResponseBytes = 1 << 20

// RefreshRequestBuilder produces the HTTP request for one refresh-grant call.
// Gen1 custodians take a form-encoded OAuth2 grant; gen3 custodians take a
// JSON body.
type RefreshRequestBuilder func(ctx context.Context, refreshTokenURL string, refreshToken string) (*http.Request, error)

type BaseConfig struct {
	CustodianType  core.CustodianType
	RPCPath        string
	RefreshRequest RefreshRequestBuilder
	Client         core.ClientConfig
}

// Base implements everything a CustodianClient needs except the per-method
// parameter shapes. It owns the refresh token: rotation is detected inside
// the refresh call and broadcast synchronously before the access token is
// handed back, so listeners always run before the rotated token is used.
type Base struct {
	custodianType core.CustodianType
	apiBaseURL    string
	rpcURL        string

	refreshMu       sync.Mutex
	refreshToken    string
	refreshTokenURL string

	httpClient core.HTTPDoer
	timeout    time.Duration
	now        func() time.Time

	cache        *core.AccessTokenCache
	events       *core.TokenEventBroadcaster
	buildRefresh RefreshRequestBuilder
	nextID       atomic.Uint64
}

func NewBase(cfg BaseConfig) (*Base, error) {
	if err := cfg.CustodianType.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Client.RefreshToken) == "" {
		return nil, fmt.Errorf("clients: refresh token is required")
	}
	if strings.TrimSpace(cfg.Client.APIBaseURL) == "" {
		return nil, fmt.Errorf("clients: api base url is required")
	}
	if strings.TrimSpace(cfg.Client.RefreshTokenURL) == "" {
		return nil, fmt.Errorf("clients: refresh token url is required")
	}
	if cfg.RefreshRequest == nil {
		return nil, fmt.Errorf("clients: refresh request builder is required")
	}

	httpClient := cfg.Client.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	now := cfg.Client.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	timeout := cfg.Client.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	apiBaseURL := strings.TrimRight(strings.TrimSpace(cfg.Client.APIBaseURL), "/")
	base := &Base{
		custodianType:   cfg.CustodianType,
		apiBaseURL:      apiBaseURL,
		rpcURL:          apiBaseURL + "/" + strings.Trim(cfg.RPCPath, "/"),
		refreshToken:    cfg.Client.RefreshToken,
		refreshTokenURL: cfg.Client.RefreshTokenURL,
		httpClient:      httpClient,
		timeout:         timeout,
		now:             now,
		cache:           core.NewAccessTokenCache(now),
		events:          core.NewTokenEventBroadcaster(),
	}
	base.buildRefresh = cfg.RefreshRequest
	return base, nil
}

func (b *Base) CustodianType() core.CustodianType {
	return b.custodianType
}

func (b *Base) APIBaseURL() string {
	return b.apiBaseURL
}

func (b *Base) Subscribe(listener core.TokenEventListener) func() {
	return b.events.Subscribe(listener)
}

// RefreshToken returns the current refresh token. Test hook.
func (b *Base) RefreshToken() string {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()
	return b.refreshToken
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// AccessToken returns a valid access token, performing a refresh-grant call
// when the cache is cold. Rotation events fire synchronously inside this call.
func (b *Base) AccessToken(ctx context.Context) (string, error) {
	if token, err := b.cache.Get(); err == nil {
		return token, nil
	}

	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()
	if token, err := b.cache.Get(); err == nil {
		return token, nil
	}

	requestCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := b.buildRefresh(requestCtx, b.refreshTokenURL, b.refreshToken)
	if err != nil {
		return "", fmt.Errorf("clients: building refresh request: %w", err)
	}
	res, err := b.httpClient.Do(req)
	if err != nil {
		return "", errCustodianCall("token refresh", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return "", errCustodianCall("token refresh", err)
	}

	// Only a 401 carrying the custodian's re-onboarding url means the refresh
	// token itself is dead. Anything else, a 403 from a gateway included, is
	// an ordinary failed request and must not tear the session down.
	if res.StatusCode == http.StatusUnauthorized {
		if reauthURL := rejectionURL(body); reauthURL != "" {
			b.emitExpiredLocked(ctx, reauthURL)
			return "", errRefreshTokenInvalid(res.StatusCode)
		}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errCustodianStatus("token refresh", res.StatusCode, body)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", errCustodianCall("token refresh", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", errCustodianCall("token refresh", fmt.Errorf("empty access token in response"))
	}

	b.cache.Set(token.AccessToken, time.Duration(token.ExpiresIn)*time.Second)

	if rotated := strings.TrimSpace(token.RefreshToken); rotated != "" && rotated != b.refreshToken {
		old := b.refreshToken
		b.refreshToken = rotated
		// Listeners run to completion before the access token is returned,
		// so the stored connection already carries the new refresh token by
		// the time the caller proceeds.
		b.events.Emit(ctx, core.TokenEvent{
			Kind:            core.TokenEventRotated,
			APIBaseURL:      b.apiBaseURL,
			OldRefreshToken: old,
			NewRefreshToken: rotated,
		})
	}

	return token.AccessToken, nil
}

// rejectionURL extracts the re-onboarding url a custodian sends alongside a
// 401 for a dead refresh token. Empty when the body has no url.
func rejectionURL(body []byte) string {
	var rejection struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &rejection); err != nil {
		return ""
	}
	return strings.TrimSpace(rejection.URL)
}

func (b *Base) emitExpiredLocked(ctx context.Context, reauthURL string) {
	b.cache.Clear()
	b.events.Emit(ctx, core.TokenEvent{
		Kind:                core.TokenEventExpired,
		APIBaseURL:          b.apiBaseURL,
		OldRefreshTokenHash: fingerprintToken(b.refreshToken, reauthURL),
		ReauthURL:           reauthURL,
	})
}

// fingerprintToken derives a non-reversible identifier for a dead refresh
// token so expiry can be reported without leaking the token itself.
func fingerprintToken(refreshToken, apiBaseURL string) string {
	sum := sha256.Sum256([]byte(refreshToken + apiBaseURL))
	return hex.EncodeToString(sum[:])
}

// Call performs one authenticated JSON-RPC call against the custodian and
// decodes the result into out.
func (b *Base) Call(ctx context.Context, method string, params any, out any) error {
	token, err := b.AccessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      b.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("clients: encoding %s request: %w", method, err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, b.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("clients: building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := b.httpClient.Do(req)
	if err != nil {
		return errCustodianCall(method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return errCustodianCall(method, err)
	}
	if res.StatusCode == http.StatusUnauthorized {
		// Access token went stale server-side; drop it so the next call
		// refreshes.
		b.cache.Clear()
		return errCustodianStatus(method, res.StatusCode, body)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errCustodianStatus(method, res.StatusCode, body)
	}

	var response rpcResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return errCustodianCall(method, err)
	}
	if response.Error != nil {
		return errCustodianCall(method, response.Error)
	}
	if out == nil {
		return nil
	}
	if len(response.Result) == 0 {
		return errCustodianCall(method, fmt.Errorf("empty result"))
	}
	if err := json.Unmarshal(response.Result, out); err != nil {
		return errCustodianCall(method, err)
	}
	return nil
}

func errCustodianCall(operation string, cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryExternal,
		fmt.Sprintf("clients: custodian call failed: %s", operation)).
		WithTextCode(core.CustodyErrorCustodianCallFailed).
		WithCode(http.StatusBadGateway)
}

func errCustodianStatus(operation string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 256 {
		detail = detail[:256]
	}
	return goerrors.New(
		fmt.Sprintf("clients: custodian call failed: %s: status %d: %s", operation, status, detail),
		goerrors.CategoryExternal,
	).WithTextCode(core.CustodyErrorCustodianCallFailed).WithCode(http.StatusBadGateway)
}

func errRefreshTokenInvalid(status int) error {
	return goerrors.New(
		fmt.Sprintf("clients: refresh token invalid or expired: status %d", status),
		goerrors.CategoryAuth,
	).WithTextCode(core.CustodyErrorRefreshTokenInvalid).WithCode(http.StatusUnauthorized)
}
