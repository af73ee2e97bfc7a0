package stub

import (
	"github.com/shopspring/decimal"

	"github.com/SprengerV/volume-analyzer/internal/solana"
)

// Swap describes the single token exchange a SwapTx performs.
type Swap struct {
	InputMint  string
	AmountIn   string
	OutputMint string
	AmountOut  string
}

// SwapTx builds a successful transaction whose token balance deltas produce
// exactly one swap event. blockTime <= 0 leaves the block time unknown.
func SwapTx(signature string, blockTime int64, s Swap, accountKeys ...string) *solana.Transaction {
	tx := &solana.Transaction{
		Signature: signature,
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				balance(1, s.InputMint, s.AmountIn),
				balance(2, s.OutputMint, "0"),
			},
			PostTokenBalances: []solana.TokenBalance{
				balance(1, s.InputMint, "0"),
				balance(2, s.OutputMint, s.AmountOut),
			},
		},
		Message: &solana.TransactionMessage{AccountKeys: accountKeys},
	}
	if blockTime > 0 {
		bt := blockTime
		tx.BlockTime = &bt
	}
	return tx
}

// EmptyTx builds a successful transaction without token balance changes.
func EmptyTx(signature string, blockTime int64) *solana.Transaction {
	bt := blockTime
	return &solana.Transaction{
		Signature: signature,
		BlockTime: &bt,
		Meta:      &solana.TransactionMeta{},
		Message:   &solana.TransactionMessage{},
	}
}

func balance(idx int, mint, amount string) solana.TokenBalance {
	return solana.TokenBalance{
		AccountIndex: idx,
		Mint:         mint,
		Amount:       decimal.RequireFromString(amount),
		Decimals:     6,
	}
}
