package accounting

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0ase/path402/apps/poeminter/internal/dataset"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSplitConstantsSumToOne(t *testing.T) {
	assert.True(t, PrimarySplit.Add(SecondarySplit).Equal(decimal.NewFromInt(1)))
}

func TestCompute_ReferenceScenario(t *testing.T) {
	samples := dataset.Parse("1700000000000,-0.50\n1700000003600,-0.30")
	r := Compute(samples)

	assert.True(t, r.TotalEnergy.Equal(dec("8")), "total energy = %s", r.TotalEnergy)
	assert.True(t, r.MintedAmount.Equal(dec("0.008")), "minted = %s", r.MintedAmount)
	assert.True(t, r.PrimaryShare.Equal(dec("0.0068")), "primary = %s", r.PrimaryShare)
	assert.True(t, r.SecondaryShare.Equal(dec("0.0012")), "secondary = %s", r.SecondaryShare)
}

func TestCompute_EmptyIsZero(t *testing.T) {
	r := Compute(nil)
	assert.True(t, r.IsZero())
	assert.True(t, r.TotalEnergy.IsZero())
	assert.True(t, r.PrimaryShare.IsZero())
	assert.True(t, r.SecondaryShare.IsZero())

	r = Compute([]dataset.Sample{})
	assert.True(t, r.IsZero())
}

func TestCompute_Idempotent(t *testing.T) {
	samples := dataset.Parse("1,0.1\n2,-0.2\n3,0.3")
	a := Compute(samples)
	b := Compute(samples)
	assert.Equal(t, a, b)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := rng.Intn(50)
		samples := make([]dataset.Sample, n)
		expectedTotal := decimal.Zero
		for j := range samples {
			v := decimal.NewFromFloat(rng.Float64()*20 - 10).Round(6)
			samples[j] = dataset.Sample{Timestamp: int64(j), Magnitude: v.Abs(), SignedValue: v}
			expectedTotal = expectedTotal.Add(v.Abs().Mul(decimal.NewFromInt(10)))
		}

		r := Compute(samples)
		require.True(t, r.TotalEnergy.Equal(expectedTotal), "total energy")
		require.True(t, r.MintedAmount.Equal(r.TotalEnergy.Mul(dec("0.001"))), "minted")
		require.True(t, r.PrimaryShare.Add(r.SecondaryShare).Equal(r.MintedAmount), "split")
		require.False(t, r.MintedAmount.IsNegative(), "minted non-negative")
	}
}

func TestQuote(t *testing.T) {
	assert.True(t, Quote(dec("0.0068")).Equal(dec("0.476")))
	assert.True(t, Quote(decimal.Zero).IsZero())
}
