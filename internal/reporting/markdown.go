package reporting

import (
	"fmt"
	"strings"
	"time"
)

// maxMarkdownSwaps bounds the swap table of the Markdown report.
const maxMarkdownSwaps = 50

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Volume Analysis: %s\n\n", r.Address))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("**Classification: %s**\n\n", r.Label))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if r.AddressKind != "" {
		sb.WriteString(fmt.Sprintf("| Address kind | %s |\n", r.AddressKind))
	}
	sb.WriteString(fmt.Sprintf("| Signatures fetched | %d |\n", r.SignaturesFetched))
	sb.WriteString(fmt.Sprintf("| Transactions skipped | %d |\n", r.TransactionsSkipped))
	sb.WriteString(fmt.Sprintf("| Total swaps | %d |\n", r.Stats.Total))
	sb.WriteString(fmt.Sprintf("| Recent swaps (60m) | %d |\n", r.Stats.Recent))
	sb.WriteString(fmt.Sprintf("| Dominance | %.3f |\n", r.Stats.Dominance))
	sb.WriteString(fmt.Sprintf("| Wash | %.3f |\n", r.Stats.Wash))
	sb.WriteString(fmt.Sprintf("| Rotation | %.3f |\n", r.Stats.Rotation))
	sb.WriteString(fmt.Sprintf("| Net | %.3f |\n", r.Stats.Net))
	sb.WriteString(fmt.Sprintf("| Unique wallets ratio | %.3f |\n", r.Stats.UniqueWalletsRatio))
	sb.WriteString("\n")

	// Rules
	if len(r.Rules) > 0 {
		sb.WriteString("## Rules\n\n")
		sb.WriteString("| # | Rule | Condition | Label | Result |\n")
		sb.WriteString("|---|------|-----------|-------|--------|\n")
		for i, rule := range r.Rules {
			status := "-"
			if rule.Matched {
				status = "MATCH"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | `%s` | %s | %s |\n",
				i+1, rule.Name, rule.Condition, rule.Label, status))
		}
		sb.WriteString("\n")
	}

	// Swaps
	if len(r.Swaps) > 0 {
		sb.WriteString("## Swaps\n\n")
		sb.WriteString("| Time | Signature | In | Amount In | Out | Amount Out | Price |\n")
		sb.WriteString("|------|-----------|----|-----------|-----|------------|-------|\n")

		shown := r.Swaps
		if len(shown) > maxMarkdownSwaps {
			shown = shown[len(shown)-maxMarkdownSwaps:]
		}
		for _, s := range shown {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.6f | %s | %.6f | %s |\n",
				formatTimestamp(s), shorten(s.TxSignature),
				shorten(s.InputMint), s.AmountIn,
				shorten(s.OutputMint), s.AmountOut,
				formatPrice(s.Price)))
		}
		if len(r.Swaps) > maxMarkdownSwaps {
			sb.WriteString(fmt.Sprintf("\n_Showing the latest %d of %d swaps._\n", maxMarkdownSwaps, len(r.Swaps)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
