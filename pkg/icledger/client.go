package icledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chainsafe/cknft-bridge/pkg/config"
	"go.uber.org/zap"
)

// Client talks HTTP/JSON to the bridge orchestrator service fronting the IC.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
	logger  *zap.Logger
}

// NewClient creates a ledger service client from configuration.
func NewClient(cfg *config.LedgerConfig, logger *zap.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger base url: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Configured ledger service client", zap.String("base_url", cfg.BaseURL))

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  newTokenSource(cfg.Auth),
		logger:  logger,
	}, nil
}

// QuoteCanisterCreationCost returns the cycles required to create a ckNFT
// canister for the pointer's collection.
func (c *Client) QuoteCanisterCreationCost(ctx context.Context, pointer ContractPointer) (uint64, error) {
	var resp struct {
		Cycles uint64 `json:"cycles"`
	}
	err := c.post(ctx, "/v1/canisters/quote-create", map[string]any{"pointer": pointer}, &resp)
	return resp.Cycles, err
}

// QuoteCastCost returns the cycles required to cast a token from a ckNFT
// canister back to the given network.
func (c *Client) QuoteCastCost(ctx context.Context, ckCanister, contract string, network Network, tokenID string) (uint64, error) {
	var resp struct {
		Cycles uint64 `json:"cycles"`
	}
	body := map[string]any{
		"contract": contract,
		"network":  network,
		"token_id": tokenID,
	}
	err := c.post(ctx, "/v1/canisters/"+url.PathEscape(ckCanister)+"/quote-cast", body, &resp)
	return resp.Cycles, err
}

// ResolveApprovalAddress returns the custody address the account must approve
// or transfer to before minting from the remote collection.
func (c *Client) ResolveApprovalAddress(ctx context.Context, account string, remote ContractPointer) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	body := map[string]any{
		"account": account,
		"pointer": remote,
	}
	err := c.post(ctx, "/v1/approvals/resolve", body, &resp)
	return resp.Address, err
}

// ResolveFundingAddress returns the address used to top up a canister with
// cycles for operations targeting the given network.
func (c *Client) ResolveFundingAddress(ctx context.Context, canister string, network Network) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	err := c.post(ctx, "/v1/canisters/"+url.PathEscape(canister)+"/funding-address", map[string]any{"network": network}, &resp)
	return resp.Address, err
}

// CreateOrGetCanister resolves the ckNFT canister for a pointer, creating it
// when none exists. The service keys canisters by pointer, so repeated calls
// for the same collection are idempotent.
func (c *Client) CreateOrGetCanister(ctx context.Context, pointer ContractPointer, defaults CanisterDefaults, requiredCycles uint64) (string, error) {
	var resp struct {
		CanisterID string `json:"canister_id"`
	}
	body := map[string]any{
		"pointer":         pointer,
		"defaults":        defaults,
		"required_cycles": requiredCycles,
	}
	err := c.post(ctx, "/v1/canisters", body, &resp)
	return resp.CanisterID, err
}

// SubmitMint submits one mint request. Not idempotent: resubmitting the same
// asset produces a duplicate mint request.
func (c *Client) SubmitMint(ctx context.Context, req MintRequest, requiredCycles uint64) (string, error) {
	var resp struct {
		MintRequestID string `json:"mint_request_id"`
	}
	body := map[string]any{
		"request":         req,
		"required_cycles": requiredCycles,
	}
	err := c.post(ctx, "/v1/mints", body, &resp)
	return resp.MintRequestID, err
}

// PollMintStatus reads the current status of a mint request.
func (c *Client) PollMintStatus(ctx context.Context, mintRequestID string) (Status, error) {
	var resp Status
	err := c.get(ctx, "/v1/mints/"+url.PathEscape(mintRequestID)+"/status", &resp)
	return resp, err
}

// SubmitCast submits one cast request.
func (c *Client) SubmitCast(ctx context.Context, req CastRequest) (string, error) {
	var resp struct {
		CastID string `json:"cast_id"`
	}
	err := c.post(ctx, "/v1/casts", req, &resp)
	return resp.CastID, err
}

// PollCastStatus reads the current status of a cast request.
func (c *Client) PollCastStatus(ctx context.Context, castID string) (Status, error) {
	var resp Status
	err := c.get(ctx, "/v1/casts/"+url.PathEscape(castID)+"/status", &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.bearer()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return networkError(fmt.Errorf("failed to decode %s response: %w", path, err))
		}
	}
	return nil
}

// decodeError maps a non-2xx response onto the service taxonomy. Bodies carry
// a ServiceError JSON object; responses without one fall back to the kind
// implied by the HTTP status.
func (c *Client) decodeError(resp *http.Response) error {
	var svcErr ServiceError
	if err := json.NewDecoder(resp.Body).Decode(&svcErr); err == nil && svcErr.Kind != "" {
		return &svcErr
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ServiceError{Kind: KindUnauthorized}
	case http.StatusNotFound:
		return &ServiceError{Kind: KindNotFound}
	default:
		return &ServiceError{Kind: KindGeneric, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
}
