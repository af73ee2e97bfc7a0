package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/SprengerV/volume-analyzer/internal/observability"
)

// Default configuration values.
const (
	DefaultEndpoint    = "https://api.mainnet-beta.solana.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0 over one or
// more endpoints. Each retry round walks every endpoint once, starting
// from the one that answered last.
type HTTPClient struct {
	endpoints   []string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
	preferred   atomic.Int64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets the number of retry rounds after the first one.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
// Empty endpoint strings are ignored; with none left DefaultEndpoint is used.
func NewHTTPClient(endpoints []string, opts ...ClientOption) *HTTPClient {
	var eps []string
	for _, e := range endpoints {
		if e = strings.TrimSpace(e); e != "" {
			eps = append(eps, e)
		}
	}
	if len(eps) == 0 {
		eps = []string{DefaultEndpoint}
	}

	c := &HTTPClient{
		endpoints:   eps,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the configured endpoints.
func (c *HTTPClient) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call with endpoint failover, retries and
// exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	n := len(c.endpoints)
	delay := c.retryDelay
	attempts := 0
	var lastErr error

	for round := 0; round <= c.maxRetries; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		first := int(c.preferred.Load())
		for i := 0; i < n; i++ {
			idx := (first + i) % n
			if i > 0 {
				observability.RecordFailover()
			}

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			attempts++
			retry, err := c.attempt(ctx, c.endpoints[idx], body, result)
			if err == nil {
				c.preferred.Store(int64(idx))
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !retry {
				return err
			}
			observability.RecordRPCError(method, errorReason(err))
			lastErr = err
		}
	}

	return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrExhaustedRetries, method, attempts, lastErr)
}

// attempt sends one request to one endpoint. The bool reports whether
// the failure is worth retrying.
func (c *HTTPClient) attempt(ctx context.Context, endpoint string, body []byte, result interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return true, &statusError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(respBody)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return true, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return false, rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return false, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return false, nil
}

func errorReason(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		if se.Status == http.StatusTooManyRequests {
			return "rate_limited"
		}
		return "status"
	}
	if strings.HasPrefix(err.Error(), "unmarshal") {
		return "decode"
	}
	return "transport"
}

// GetTransaction retrieves a transaction by signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	return result.toTransaction(signature)
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}       `json:"err"`
	LogMessages       []string          `json:"logMessages"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
	LoadedAddresses   *loadedAddresses  `json:"loadedAddresses"`
}

type loadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []accountKey `json:"accountKeys"`
}

// accountKey accepts both the plain string form of "json" encoding and
// the {"pubkey": ...} object form of "jsonParsed".
type accountKey string

func (k *accountKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = accountKey(s)
		return nil
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("account key: %w", err)
	}
	*k = accountKey(obj.Pubkey)
	return nil
}

type rawTokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount         string   `json:"amount"`
		Decimals       uint8    `json:"decimals"`
		UIAmount       *float64 `json:"uiAmount"`
		UIAmountString string   `json:"uiAmountString"`
	} `json:"uiTokenAmount"`
}

// amount prefers the exact string form, then the float form, then the raw
// integer amount scaled by decimals.
func (b rawTokenBalance) amount() (decimal.Decimal, error) {
	ui := b.UITokenAmount
	if ui.UIAmountString != "" {
		return decimal.NewFromString(ui.UIAmountString)
	}
	if ui.UIAmount != nil {
		return decimal.NewFromFloat(*ui.UIAmount), nil
	}
	if ui.Amount != "" {
		raw, err := decimal.NewFromString(ui.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		return raw.Shift(-int32(ui.Decimals)), nil
	}
	return decimal.Zero, nil
}

func convertBalances(raw []rawTokenBalance) ([]TokenBalance, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]TokenBalance, 0, len(raw))
	for _, r := range raw {
		amt, err := r.amount()
		if err != nil {
			return nil, fmt.Errorf("token balance %s[%d]: %w", r.Mint, r.AccountIndex, err)
		}
		out = append(out, TokenBalance{
			AccountIndex: r.AccountIndex,
			Mint:         r.Mint,
			Owner:        r.Owner,
			Amount:       amt,
			Decimals:     r.UITokenAmount.Decimals,
		})
	}
	return out, nil
}

func (r *getTransactionResult) toTransaction(signature string) (*Transaction, error) {
	tx := &Transaction{
		Slot:      r.Slot,
		Signature: signature,
		BlockTime: r.BlockTime,
	}

	if r.Meta != nil {
		pre, err := convertBalances(r.Meta.PreTokenBalances)
		if err != nil {
			return nil, fmt.Errorf("pre balances: %w", err)
		}
		post, err := convertBalances(r.Meta.PostTokenBalances)
		if err != nil {
			return nil, fmt.Errorf("post balances: %w", err)
		}
		tx.Meta = &TransactionMeta{
			Err:               r.Meta.Err,
			LogMessages:       r.Meta.LogMessages,
			PreTokenBalances:  pre,
			PostTokenBalances: post,
		}
		if la := r.Meta.LoadedAddresses; la != nil {
			tx.Meta.LoadedWritable = la.Writable
			tx.Meta.LoadedReadonly = la.Readonly
		}
	}

	if r.Transaction != nil && r.Transaction.Message != nil {
		keys := make([]string, len(r.Transaction.Message.AccountKeys))
		for i, k := range r.Transaction.Message.AccountKeys {
			keys[i] = string(k)
		}
		tx.Message = &TransactionMessage{AccountKeys: keys}
	}

	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

var _ RPCClient = (*HTTPClient)(nil)
