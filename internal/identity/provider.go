// Package identity resolves the addresses a player can connect with and
// issues the tokens that let a browser restore its identity on reconnect.
package identity

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// AddressLength is the number of hex digits in a normalized address.
const AddressLength = 64

var (
	ErrInvalidAddress = errors.New("identity: invalid address")
	ErrUnknownAddress = errors.New("identity: address not available")
)

// Provider lists and validates the identities a session may connect.
type Provider interface {
	// Accounts lists addresses offered in the connect panel.
	Accounts() []string
	// Validate returns the normalized form of address, or an error when the
	// address cannot be used.
	Validate(address string) (string, error)
}

// NormalizeAddress lowercases a 0x-prefixed hex address and left-pads it to
// the full width.
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(a, "0x") {
		return "", ErrInvalidAddress
	}
	digits := a[2:]
	if digits == "" || len(digits) > AddressLength {
		return "", ErrInvalidAddress
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", ErrInvalidAddress
	}
	return "0x" + strings.Repeat("0", AddressLength-len(digits)) + digits, nil
}

// Open accepts any well-formed address. It is used with the local ledger.
type Open struct {
	accounts []string
}

// NewOpen creates an Open provider that suggests the given accounts.
// Malformed suggestions are skipped.
func NewOpen(accounts []string) *Open {
	seen := make(map[string]bool, len(accounts))
	list := make([]string, 0, len(accounts))
	for _, a := range accounts {
		n, err := NormalizeAddress(a)
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		list = append(list, n)
	}
	sort.Strings(list)
	return &Open{accounts: list}
}

func (o *Open) Accounts() []string {
	out := make([]string, len(o.accounts))
	copy(out, o.accounts)
	return out
}

func (o *Open) Validate(address string) (string, error) {
	return NormalizeAddress(address)
}
