// Package reporting renders analysis results for people and spreadsheets.
package reporting

import (
	"time"

	"github.com/SprengerV/volume-analyzer/internal/classify"
	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// Report is everything shown about one analysis.
type Report struct {
	Address     string
	AddressKind string
	RunID       string
	GeneratedAt time.Time
	Label       domain.Label
	Stats       domain.Stats
	Rules       []classify.RuleResult
	Swaps       []domain.SwapEvent

	SignaturesFetched   int
	TransactionsSkipped int
}
