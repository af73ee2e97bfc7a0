package reporting

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// RenderSwapTable prints swaps as a console table.
func RenderSwapTable(w io.Writer, swaps []domain.SwapEvent) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Time", "Signature", "In", "Amount In", "Out", "Amount Out", "Price")

	for i, s := range swaps {
		ts := formatTimestamp(s)
		if ts == "" {
			ts = "-"
		}
		price := formatPrice(s.Price)
		if price == "" {
			price = "-"
		}
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			ts,
			shorten(s.TxSignature),
			shorten(s.InputMint),
			fmt.Sprintf("%.6f", s.AmountIn),
			shorten(s.OutputMint),
			fmt.Sprintf("%.6f", s.AmountOut),
			price,
		); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}

	return table.Render()
}

// shorten keeps the head and tail of long base58 strings.
func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
