// Package bridge checks destinations for the simulated cross-chain transfer.
package bridge

import (
	"fmt"
	"strings"
)

// Chain is the one secondary chain minted tokens can be bridged to.
type Chain struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	AddressPrefix string `json:"address_prefix"`
}

// ValidationError is returned when a destination is rejected.
type ValidationError struct {
	Chain   string
	Prefix  string
	Address string
}

func (e *ValidationError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("bridge rejected: %s destination address is empty", e.Chain)
	}
	return fmt.Sprintf("bridge rejected: %s address must start with %q", e.Chain, e.Prefix)
}

// Validate applies the prefix check. Only the prefix is checked, not the
// full address format.
func (c Chain) Validate(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" || !strings.HasPrefix(addr, c.AddressPrefix) {
		return &ValidationError{Chain: c.Name, Prefix: c.AddressPrefix, Address: addr}
	}
	return nil
}
