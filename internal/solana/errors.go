package solana

import (
	"errors"
	"fmt"
)

// ErrExhaustedRetries is wrapped by every error returned after all
// endpoints failed on every retry round.
var ErrExhaustedRetries = errors.New("rpc retries exhausted")

// ErrInvalidAddress is returned when a string is not a base58 encoded 32 byte key.
var ErrInvalidAddress = errors.New("invalid solana address")

// RPCError is a JSON-RPC 2.0 error object returned by the node.
// It is not retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// statusError is a non-200 HTTP answer from an endpoint.
type statusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *statusError) Error() string {
	if e.Status == 429 {
		return fmt.Sprintf("%s: rate limited (429)", e.Endpoint)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.Status, e.Body)
}
