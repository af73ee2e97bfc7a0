package domain

// Label is the behavioral classification of an address.
type Label string

// Classifier labels.
const (
	LabelExitLiquidity Label = "Exit Liquidity Bot"
	LabelFakeVolume    Label = "Visibility / Fake Volume Bot"
	LabelPriceAnchor   Label = "Price Anchor Bot"
	LabelIgnition      Label = "Ignition Bot"
	LabelOrganic       Label = "Organic"
	LabelMixed         Label = "Mixed / Unknown"
)

// Terminal analysis outcomes that never reach the classifier.
const (
	LabelNoData  Label = "No data"
	LabelNoSwaps Label = "No swaps"
)

// String returns the label text.
func (l Label) String() string {
	return string(l)
}

// IsBot reports whether the label names a bot pattern.
func (l Label) IsBot() bool {
	switch l {
	case LabelExitLiquidity, LabelFakeVolume, LabelPriceAnchor, LabelIgnition:
		return true
	}
	return false
}
