package assets

import (
	"regexp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_OrderAndFields(t *testing.T) {
	r := Default()
	require.Equal(t, 6, r.Len())

	var symbols []string
	for _, a := range r.All() {
		symbols = append(symbols, a.Symbol)
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.DisplayName)
		assert.NotEmpty(t, a.Glyph)
		assert.NotEmpty(t, a.Color)
		assert.NotNil(t, a.AddressPattern)
	}
	assert.Equal(t, []string{"BTC", "ADA", "XMR", "DOGE", "ZEC", "ETH"}, symbols)
}

func TestAddressPatterns(t *testing.T) {
	tests := []struct {
		symbol  string
		valid   []string
		invalid []string
	}{
		{
			symbol: "BTC",
			valid: []string{
				"bc1q0000000000000000000000000000000000000",
				"1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
				"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",
			},
			invalid: []string{"notbitcoin", "bc1short", "2BoatSLRHtKNngkdXEeobR76b53LETtpyT", ""},
		},
		{
			symbol:  "ADA",
			valid:   []string{"addr1" + strings.Repeat("q", 58)},
			invalid: []string{"addr1short", "addr2" + strings.Repeat("q", 58), "addr1" + strings.Repeat("Q", 58)},
		},
		{
			symbol:  "XMR",
			valid:   []string{"4A" + strings.Repeat("x", 93), "48" + strings.Repeat("9", 93)},
			invalid: []string{"4C" + strings.Repeat("x", 93), "4A" + strings.Repeat("x", 92), "4A" + strings.Repeat("0", 93)},
		},
		{
			symbol:  "DOGE",
			valid:   []string{"D8" + strings.Repeat("k", 32)},
			invalid: []string{"D4" + strings.Repeat("k", 32), "A8" + strings.Repeat("k", 32), "D8" + strings.Repeat("k", 31)},
		},
		{
			symbol:  "ZEC",
			valid:   []string{"t1" + strings.Repeat("Z", 33)},
			invalid: []string{"t3" + strings.Repeat("Z", 33), "t1" + strings.Repeat("Z", 34), "zs1abc"},
		},
		{
			symbol:  "ETH",
			valid:   []string{"0x" + strings.Repeat("aB", 20)},
			invalid: []string{"0x" + strings.Repeat("g", 40), "0x" + strings.Repeat("a", 39), strings.Repeat("a", 42)},
		},
	}

	r := Default()
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			a, ok := r.Lookup(tt.symbol)
			require.True(t, ok)
			for _, addr := range tt.valid {
				assert.True(t, a.ValidAddress(addr), "%s should accept %q", tt.symbol, addr)
			}
			for _, addr := range tt.invalid {
				assert.False(t, a.ValidAddress(addr), "%s should reject %q", tt.symbol, addr)
			}
		})
	}
}

func TestValidAddress_TrimsWhitespace(t *testing.T) {
	a, _ := Default().Lookup("BTC")
	assert.True(t, a.ValidAddress("  bc1q0000000000000000000000000000000000000\n"))
}

func TestLookup(t *testing.T) {
	r := Default()

	a, ok := r.Lookup("btc")
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", a.DisplayName)

	a, ok = r.Lookup("monero")
	require.True(t, ok, "lookup by id")
	assert.Equal(t, "XMR", a.Symbol)

	_, ok = r.Lookup("SOL")
	assert.False(t, ok)
}

func TestRegister_ExtendsWithoutBranching(t *testing.T) {
	r := Default()
	r.Register(Asset{
		ID:             "litecoin",
		DisplayName:    "Litecoin",
		Symbol:         "LTC",
		Glyph:          "Ł",
		Color:          "#345d9d",
		AddressPattern: regexp.MustCompile(`^[LM][a-km-zA-HJ-NP-Z1-9]{26,33}$`),
	})
	require.Equal(t, 7, r.Len())
	assert.Equal(t, "LTC", r.All()[6].Symbol)

	a, ok := r.Lookup("LTC")
	require.True(t, ok)
	assert.True(t, a.ValidAddress("LdP8Qox1VAhCzLJNqrr74YovaWYyNBUWvL"))
}

func TestFiatValue(t *testing.T) {
	a, _ := Default().Lookup("ETH")
	assert.True(t, a.FiatValue(decimal.RequireFromString("0.5")).Equal(decimal.NewFromInt(35)))
}
