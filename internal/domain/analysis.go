package domain

import "time"

// Analysis is the persisted outcome of one historical analysis.
// Stored keyed by Address; a newer analysis replaces the previous one.
type Analysis struct {
	Address    string    `json:"address"`
	Label      Label     `json:"classification"`
	Report     string    `json:"report"`
	Stats      Stats     `json:"stats"`
	RunID      string    `json:"run_id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}
