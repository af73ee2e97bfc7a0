package reporting

import (
	"fmt"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// NoSignaturesReport is the report text of an address without history.
const NoSignaturesReport = "No signatures found"

// RenderText renders the plain text analysis report. The layout is stable;
// stored reports are compared against it.
func RenderText(label domain.Label, s domain.Stats) string {
	return fmt.Sprintf("Classification: %s\n"+
		"Total swaps parsed: %d\n"+
		"Recent swaps (last 60m): %d\n"+
		"Dominance (recent/total): %.3f\n"+
		"Wash score: %.3f\n"+
		"Rotation score: %.3f\n"+
		"Net proxy: %.3f\n"+
		"Unique wallets ratio: %.3f\n",
		label,
		s.Total,
		s.Recent,
		s.Dominance,
		s.Wash,
		s.Rotation,
		s.Net,
		s.UniqueWalletsRatio,
	)
}

// RenderNoSwaps renders the report for a window without any swap.
func RenderNoSwaps(transactions int) string {
	return fmt.Sprintf("No swaps parsed from %d transactions", transactions)
}
