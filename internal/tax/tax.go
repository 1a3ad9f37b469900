package tax

import "math"

// Settings is a snapshot of the site-wide monetary configuration. It is read
// once per operation, never mutated in place.
type Settings struct {
	PostProjectTaxPercent float64
	CashoutTaxPercent     float64
	MinimumCashoutCents   int64
}

// Defaults applied when no settings row exists yet.
const (
	DefaultPostProjectTaxPercent = 10.0
	DefaultCashoutTaxPercent     = 5.0
	DefaultMinimumCashoutCents   = 1000
)

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		PostProjectTaxPercent: DefaultPostProjectTaxPercent,
		CashoutTaxPercent:     DefaultCashoutTaxPercent,
		MinimumCashoutCents:   DefaultMinimumCashoutCents,
	}
}

// Apply splits a gross amount into tax and net parts.
// tax = round(amount * percent / 100); net = amount - tax.
// The tax is destroyed (platform revenue), never credited to any account.
func Apply(amountCents int64, percent float64) (taxCents, netCents int64) {
	taxCents = int64(math.Round(float64(amountCents) * percent / 100))
	return taxCents, amountCents - taxCents
}

// Portion returns round(amount * percent / 100). Refund percentages use the
// same rounding as tax so the two stay consistent.
func Portion(amountCents int64, percent float64) int64 {
	return int64(math.Round(float64(amountCents) * percent / 100))
}
