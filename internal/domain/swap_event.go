package domain

import "time"

// SwapEvent is one inferred token-for-token exchange inside a transaction.
// Produced by the swap extractor from net token balance deltas; never mutated.
type SwapEvent struct {
	TxSignature string   `json:"signature"`              // transaction signature
	EventIndex  int      `json:"event_index"`            // index of the pair within the transaction
	Slot        int64    `json:"slot"`                   // Solana slot number
	Timestamp   *int64   `json:"timestamp,omitempty"`    // Unix seconds, nil when block time is unknown
	InputMint   string   `json:"input_mint"`             // token that net-decreased
	AmountIn    float64  `json:"amount_in"`              // absolute decrease, > 0
	OutputMint  string   `json:"output_mint"`            // token that net-increased
	AmountOut   float64  `json:"amount_out"`             // increase, > 0
	Price       *float64 `json:"price,omitempty"`        // AmountOut / AmountIn, nil when AmountIn is zero
	AccountKeys []string `json:"account_keys,omitempty"` // every account the transaction touched
}

// Time returns the event timestamp and whether it is known.
func (e SwapEvent) Time() (time.Time, bool) {
	if e.Timestamp == nil {
		return time.Time{}, false
	}
	return time.Unix(*e.Timestamp, 0).UTC(), true
}

// Reverses reports whether other swaps the same pair in the opposite direction.
func (e SwapEvent) Reverses(other SwapEvent) bool {
	return e.InputMint == other.OutputMint && e.OutputMint == other.InputMint
}
