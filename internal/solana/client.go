// Package solana is a small JSON-RPC client for the account lookups the
// service needs: does an address exist, and is it an executable program.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"shadow/internal/platform/config"
	"shadow/pkg/platform/circuit"
)

// AccountInfo is the subset of getAccountInfo the service exposes.
type AccountInfo struct {
	Address    string `json:"address"`
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rent_epoch"`
	Space      uint64 `json:"space"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("solana rpc error %d: %s", e.Code, e.Message)
}

type Client struct {
	endpoint   string
	commitment string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	maxRetries uint64
	breaker    *circuit.Breaker
	nextID     atomic.Uint64
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBreaker replaces the default breaker that fails calls fast after
// repeated node outages.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// New builds a client for cfg.RPCURL. Outbound calls are paced to
// cfg.RequestsPerSecond; zero disables pacing.
func New(cfg config.SolanaConfig, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c := &Client{
		endpoint:   cfg.RPCURL,
		commitment: cfg.Commitment,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, max(1, int(cfg.RequestsPerSecond))),
		logger:     slog.Default(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("solana-rpc", circuit.WithTrip(tripsBreaker), circuit.WithLogger(c.logger))
	}
	return c
}

// tripsBreaker counts outages only; a node that answers with an RPC error is up.
func tripsBreaker(err error) bool {
	return !IsRPCError(err) && !errors.Is(err, context.Canceled)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type accountInfoResult struct {
	Value *struct {
		Lamports   uint64 `json:"lamports"`
		Owner      string `json:"owner"`
		Executable bool   `json:"executable"`
		RentEpoch  uint64 `json:"rentEpoch"`
		Space      uint64 `json:"space"`
	} `json:"value"`
}

// GetAccount returns the account at address, or nil when it does not exist.
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountInfo, error) {
	params := map[string]any{"encoding": "base64", "dataSlice": map[string]int{"offset": 0, "length": 0}}
	if c.commitment != "" {
		params["commitment"] = c.commitment
	}

	var result accountInfoResult
	if err := c.call(ctx, "getAccountInfo", []any{address, params}, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	v := result.Value
	return &AccountInfo{
		Address:    address,
		Lamports:   v.Lamports,
		Owner:      v.Owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
		Space:      v.Space,
	}, nil
}

// GetProgram returns the account only when it is an executable program.
func (c *Client) GetProgram(ctx context.Context, address string) (*AccountInfo, error) {
	acc, err := c.GetAccount(ctx, address)
	if err != nil || acc == nil || !acc.Executable {
		return nil, err
	}
	return acc, nil
}

func (c *Client) ProgramExists(ctx context.Context, address string) (bool, error) {
	prog, err := c.GetProgram(ctx, address)
	if err != nil {
		return false, err
	}
	return prog != nil, nil
}

// AccountExists reports whether any account, executable or not, lives at address.
func (c *Client) AccountExists(ctx context.Context, address string) (bool, error) {
	acc, err := c.GetAccount(ctx, address)
	if err != nil {
		return false, err
	}
	return acc != nil, nil
}

// Health calls getHealth; a healthy node answers "ok".
func (c *Client) Health(ctx context.Context) error {
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("solana node unhealthy: %s", status)
	}
	return nil
}

// call sends one request, retrying transport failures, 429 and 5xx with
// exponential backoff. RPC error objects are not retried. While the breaker is
// open calls fail with circuit.ErrOpen without reaching the node.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return c.roundTrip(ctx, method, body, out)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "solana rpc retry",
			"method", method,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	}
	return c.breaker.Do(ctx, func() error {
		return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify)
	})
}

func (c *Client) roundTrip(ctx context.Context, method string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build %s request: %w", method, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s: http status %d", method, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("%s: http status %d", method, resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", method, err))
	}
	if rpcResp.Error != nil {
		return backoff.Permanent(rpcResp.Error)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s result: %w", method, err))
	}
	return nil
}

// IsRPCError reports whether err came back from the node as a JSON-RPC error.
func IsRPCError(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr)
}
