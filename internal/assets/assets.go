// Package assets holds the payout assets a settlement can target.
package assets

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/accounting"
)

// Asset describes one settlement target and the destination address format
// it accepts.
type Asset struct {
	ID             string         `json:"id"`
	DisplayName    string         `json:"display_name"`
	Symbol         string         `json:"symbol"`
	Glyph          string         `json:"glyph"`
	Color          string         `json:"color"`
	AddressPattern *regexp.Regexp `json:"-"`
}

// ValidAddress reports whether addr matches the asset's pattern. Surrounding
// whitespace is ignored.
func (a Asset) ValidAddress(addr string) bool {
	return a.AddressPattern.MatchString(strings.TrimSpace(addr))
}

// FiatValue converts a token amount into dollars at the fixed peg.
func (a Asset) FiatValue(amount decimal.Decimal) decimal.Decimal {
	return accounting.Quote(amount)
}

// Pattern returns the address expression as text, for display.
func (a Asset) Pattern() string {
	return a.AddressPattern.String()
}

// Registry is an ordered set of assets keyed by symbol.
type Registry struct {
	order    []string
	bySymbol map[string]Asset
}

// NewRegistry builds a registry; later duplicates of a symbol replace
// earlier ones without changing order.
func NewRegistry(list ...Asset) *Registry {
	r := &Registry{bySymbol: make(map[string]Asset, len(list))}
	for _, a := range list {
		r.Register(a)
	}
	return r
}

// Register adds an asset to the end of the registry.
func (r *Registry) Register(a Asset) {
	key := strings.ToUpper(a.Symbol)
	if _, exists := r.bySymbol[key]; !exists {
		r.order = append(r.order, key)
	}
	r.bySymbol[key] = a
}

// Lookup finds an asset by symbol or id, case-insensitively.
func (r *Registry) Lookup(symbol string) (Asset, bool) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if a, ok := r.bySymbol[key]; ok {
		return a, true
	}
	for _, k := range r.order {
		if strings.EqualFold(r.bySymbol[k].ID, key) {
			return r.bySymbol[k], true
		}
	}
	return Asset{}, false
}

// All returns the assets in registration order.
func (r *Registry) All() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.bySymbol[k])
	}
	return out
}

// Len is the number of registered assets.
func (r *Registry) Len() int {
	return len(r.order)
}

// Default returns the six reference payout assets.
func Default() *Registry {
	return NewRegistry(
		Asset{
			ID:             "bitcoin",
			DisplayName:    "Bitcoin",
			Symbol:         "BTC",
			Glyph:          "₿",
			Color:          "#f7931a",
			AddressPattern: regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}$`),
		},
		Asset{
			ID:             "cardano",
			DisplayName:    "Cardano",
			Symbol:         "ADA",
			Glyph:          "₳",
			Color:          "#0033ad",
			AddressPattern: regexp.MustCompile(`^addr1[0-9a-z]{50,110}$`),
		},
		Asset{
			ID:             "monero",
			DisplayName:    "Monero",
			Symbol:         "XMR",
			Glyph:          "ɱ",
			Color:          "#ff6600",
			AddressPattern: regexp.MustCompile(`^4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}$`),
		},
		Asset{
			ID:             "dogecoin",
			DisplayName:    "Dogecoin",
			Symbol:         "DOGE",
			Glyph:          "Ð",
			Color:          "#c2a633",
			AddressPattern: regexp.MustCompile(`^D[5-9A-HJ-NP-U][1-9A-HJ-NP-Za-km-z]{32}$`),
		},
		Asset{
			ID:             "zcash",
			DisplayName:    "Zcash",
			Symbol:         "ZEC",
			Glyph:          "ⓩ",
			Color:          "#ecb244",
			AddressPattern: regexp.MustCompile(`^t1[a-zA-Z0-9]{33}$`),
		},
		Asset{
			ID:             "ethereum",
			DisplayName:    "Ethereum (EVM)",
			Symbol:         "ETH",
			Glyph:          "Ξ",
			Color:          "#627eea",
			AddressPattern: regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`),
		},
	)
}
