package domain

// Stats is the behavioral summary of a time-ordered window of swaps.
// Ratio fields are in [0,1]; Net is signed.
type Stats struct {
	Total              int     `json:"total"`  // swaps in the window
	Recent             int     `json:"recent"` // swaps inside the trailing recent window
	Wash               float64 `json:"wash"`
	Rotation           float64 `json:"rotation"`
	Dominance          float64 `json:"dominance"`
	Net                float64 `json:"net"`
	UniqueWalletsRatio float64 `json:"unique_wallets_ratio"`
}
