// Package accounting turns energy samples into minted token amounts.
package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/dataset"
)

// Fixed economics. None of these are configurable.
var (
	// EnergyPerUnitChange scales one unit of voltage change into energy.
	EnergyPerUnitChange = decimal.NewFromInt(10)
	// MintConversionRate converts energy into minted tokens.
	MintConversionRate = decimal.RequireFromString("0.001")
	// PrimarySplit goes to the energy producer.
	PrimarySplit = decimal.RequireFromString("0.85")
	// SecondarySplit goes to the treasury pool. PrimarySplit+SecondarySplit == 1.
	SecondarySplit = decimal.RequireFromString("0.15")
	// FiatPegUSD is the dollar value of one minted token at settlement.
	FiatPegUSD = decimal.NewFromInt(70)
)

// Result is the derived accounting for one dataset.
type Result struct {
	TotalEnergy    decimal.Decimal `json:"total_energy"`
	MintedAmount   decimal.Decimal `json:"minted_amount"`
	PrimaryShare   decimal.Decimal `json:"primary_share"`
	SecondaryShare decimal.Decimal `json:"secondary_share"`
}

// Compute sums the sample magnitudes and derives the mint and split. It is
// pure; an empty slice yields a zero Result.
func Compute(samples []dataset.Sample) Result {
	total := decimal.Zero
	for _, s := range samples {
		total = total.Add(s.Magnitude.Mul(EnergyPerUnitChange))
	}
	minted := total.Mul(MintConversionRate)
	return Result{
		TotalEnergy:    total,
		MintedAmount:   minted,
		PrimaryShare:   minted.Mul(PrimarySplit),
		SecondaryShare: minted.Mul(SecondarySplit),
	}
}

// Quote is the fiat value of amount at the fixed peg.
func Quote(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(FiatPegUSD)
}

// IsZero reports whether nothing was minted.
func (r Result) IsZero() bool {
	return r.MintedAmount.IsZero()
}
