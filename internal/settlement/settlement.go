// Package settlement validates burn requests against the payout asset
// registry. Validation never touches balances; the caller mutates state only
// after Validate returns nil.
package settlement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/assets"
)

// Reason identifies which precondition a request failed.
type Reason string

const (
	ReasonNoAsset          Reason = "no_asset"
	ReasonUnknownAsset     Reason = "unknown_asset"
	ReasonEmptyAddress     Reason = "empty_address"
	ReasonMalformedAddress Reason = "malformed_address"
	ReasonNothingToSettle  Reason = "nothing_to_settle"
	ReasonExceedsBalance   Reason = "amount_exceeds_balance"
	ReasonPartial          Reason = "partial_not_supported"
)

// ValidationError is returned for every rejected request.
type ValidationError struct {
	Reason  Reason
	Asset   string // symbol, when one was resolved
	Pattern string // address pattern the destination violated
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonNoAsset:
		return "settlement rejected: no asset selected"
	case ReasonUnknownAsset:
		return fmt.Sprintf("settlement rejected: unknown asset %q", e.Asset)
	case ReasonEmptyAddress:
		return "settlement rejected: destination address is empty"
	case ReasonMalformedAddress:
		return fmt.Sprintf("settlement rejected: address is not a valid %s address (pattern %s)", e.Asset, e.Pattern)
	case ReasonNothingToSettle:
		return "settlement rejected: no primary share to settle"
	case ReasonExceedsBalance:
		return "settlement rejected: amount exceeds primary share"
	case ReasonPartial:
		return "settlement rejected: partial burns are not supported, settle the whole primary share"
	}
	return "settlement rejected: " + string(e.Reason)
}

// Request is one burn of the primary share into a payout asset.
type Request struct {
	Amount             decimal.Decimal `json:"amount"`
	AssetSymbol        string          `json:"asset"`
	DestinationAddress string          `json:"address"`
}

// Receipt describes an accepted settlement.
type Receipt struct {
	Amount      decimal.Decimal `json:"amount"`
	FiatValue   decimal.Decimal `json:"fiat_value_usd"`
	Asset       string          `json:"asset"`
	AssetName   string          `json:"asset_name"`
	Destination string          `json:"destination"`
}

// Validate checks req against the available balance and the registry. The
// amount must equal the balance: a burn always consumes the whole share. The
// resolved asset is returned on success.
func Validate(req Request, balance decimal.Decimal, reg *assets.Registry) (assets.Asset, error) {
	symbol := strings.TrimSpace(req.AssetSymbol)
	if symbol == "" {
		return assets.Asset{}, &ValidationError{Reason: ReasonNoAsset}
	}
	asset, ok := reg.Lookup(symbol)
	if !ok {
		return assets.Asset{}, &ValidationError{Reason: ReasonUnknownAsset, Asset: symbol}
	}

	addr := strings.TrimSpace(req.DestinationAddress)
	if addr == "" {
		return asset, &ValidationError{Reason: ReasonEmptyAddress, Asset: asset.Symbol}
	}
	if !asset.ValidAddress(addr) {
		return asset, &ValidationError{Reason: ReasonMalformedAddress, Asset: asset.Symbol, Pattern: asset.Pattern()}
	}

	if !req.Amount.IsPositive() {
		return asset, &ValidationError{Reason: ReasonNothingToSettle, Asset: asset.Symbol}
	}
	if req.Amount.GreaterThan(balance) {
		return asset, &ValidationError{Reason: ReasonExceedsBalance, Asset: asset.Symbol}
	}
	if req.Amount.LessThan(balance) {
		return asset, &ValidationError{Reason: ReasonPartial, Asset: asset.Symbol}
	}
	return asset, nil
}

// NewReceipt prices an accepted request.
func NewReceipt(req Request, asset assets.Asset) Receipt {
	return Receipt{
		Amount:      req.Amount,
		FiatValue:   asset.FiatValue(req.Amount),
		Asset:       asset.Symbol,
		AssetName:   asset.DisplayName,
		Destination: strings.TrimSpace(req.DestinationAddress),
	}
}
