// Package swaps reconstructs swap events from token balance movements.
//
// A transaction is reduced to one net delta per mint, summed over every
// token account it touched. Every mint that net-decreased is paired with
// every mint that net-increased. Routes that leave several mints on one
// side produce the full cross product, so multi-leg swaps are over-counted
// rather than collapsed into a single event.
package swaps

import (
	"github.com/shopspring/decimal"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/solana"
)

// Epsilon absorbs rounding noise in balance deltas.
const Epsilon = 1e-9

var epsilon = decimal.NewFromFloat(Epsilon)

// MintDelta is the net balance change of one mint within a transaction.
type MintDelta struct {
	Mint  string
	Delta decimal.Decimal
}

// Deltas returns the net change of every mint in tx, in first-seen order
// (pre balances first, then post balances).
func Deltas(tx *solana.Transaction) []MintDelta {
	if tx == nil || tx.Meta == nil {
		return nil
	}

	index := make(map[string]int)
	var out []MintDelta
	add := func(mint string, amt decimal.Decimal) {
		i, ok := index[mint]
		if !ok {
			i = len(out)
			index[mint] = i
			out = append(out, MintDelta{Mint: mint, Delta: decimal.Zero})
		}
		out[i].Delta = out[i].Delta.Add(amt)
	}

	for _, b := range tx.Meta.PreTokenBalances {
		add(b.Mint, b.Amount.Neg())
	}
	for _, b := range tx.Meta.PostTokenBalances {
		add(b.Mint, b.Amount)
	}
	return out
}

// Extract returns the swap events implied by tx. A nil or failed
// transaction yields nothing.
func Extract(tx *solana.Transaction) []domain.SwapEvent {
	if tx == nil || tx.Failed() {
		return nil
	}

	var sold, bought []MintDelta
	for _, d := range Deltas(tx) {
		switch {
		case d.Delta.LessThan(epsilon.Neg()):
			sold = append(sold, d)
		case d.Delta.GreaterThan(epsilon):
			bought = append(bought, d)
		}
	}
	if len(sold) == 0 || len(bought) == 0 {
		return nil
	}

	keys := tx.AccountKeys()
	events := make([]domain.SwapEvent, 0, len(sold)*len(bought))
	for _, in := range sold {
		amountIn := in.Delta.Abs().InexactFloat64()
		for _, out := range bought {
			amountOut := out.Delta.InexactFloat64()
			ev := domain.SwapEvent{
				TxSignature: tx.Signature,
				EventIndex:  len(events),
				Slot:        tx.Slot,
				Timestamp:   tx.BlockTime,
				InputMint:   in.Mint,
				AmountIn:    amountIn,
				OutputMint:  out.Mint,
				AmountOut:   amountOut,
				AccountKeys: keys,
			}
			if amountIn != 0 {
				price := amountOut / amountIn
				ev.Price = &price
			}
			events = append(events, ev)
		}
	}
	return events
}
