package reporting

import (
	"fmt"
	"strings"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// RenderSwapsCSV renders swap events as CSV string.
// Timestamps are RFC 3339 UTC; unknown timestamps and prices are empty.
func RenderSwapsCSV(swaps []domain.SwapEvent) string {
	var sb strings.Builder

	sb.WriteString("timestamp,signature,event_index,input_mint,amount_in,output_mint,amount_out,price\n")

	for _, s := range swaps {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.9f,%s,%.9f,%s\n",
			formatTimestamp(s),
			s.TxSignature,
			s.EventIndex,
			s.InputMint,
			s.AmountIn,
			s.OutputMint,
			s.AmountOut,
			formatPrice(s.Price),
		))
	}

	return sb.String()
}

func formatTimestamp(s domain.SwapEvent) string {
	ts, ok := s.Time()
	if !ok {
		return ""
	}
	return ts.Format("2006-01-02T15:04:05Z")
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.9f", *p)
}
