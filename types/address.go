// Package types defines the core data types of the ledger shell:
// addresses, storage keys, block identifiers and the transaction
// envelope.
//
// Wire-crossing types carry cramberry struct tags for deterministic
// binary serialization. Transport concerns (gRPC codec registration)
// are handled in the transport packages.
package types

import (
	"strings"

	"github.com/pkg/errors"
)

// AddressKind distinguishes the account address variants.
type AddressKind uint8

const (
	// AddressValidator identifies a validator account.
	AddressValidator AddressKind = 1
	// AddressBasic identifies a basic (non-validator) account.
	AddressBasic AddressKind = 2
)

func (k AddressKind) String() string {
	switch k {
	case AddressValidator:
		return "validator"
	case AddressBasic:
		return "basic"
	default:
		return "unknown"
	}
}

// Address identifies an account. Addresses partition the storage key
// space into per-account sub-spaces. Two addresses are equal iff their
// kind and name are equal; the struct is immutable once constructed.
type Address struct {
	Kind AddressKind `cramberry:"1"`
	Name string      `cramberry:"2"`
}

// ValidatorAddress constructs a validator account address.
func ValidatorAddress(name string) Address {
	return Address{Kind: AddressValidator, Name: name}
}

// BasicAddress constructs a basic account address.
func BasicAddress(name string) Address {
	return Address{Kind: AddressBasic, Name: name}
}

// String returns the account name, which is the prefix of every
// storage key in the account's sub-space.
func (a Address) String() string { return a.Name }

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a.Kind == 0 && a.Name == "" }

// Validate checks that the address is well formed: a known kind and a
// non-empty name free of '/'. Banning '/' in names keeps the flat
// storage key form unambiguous.
func (a Address) Validate() error {
	if a.Kind != AddressValidator && a.Kind != AddressBasic {
		return errors.Errorf("unknown address kind %d", uint8(a.Kind))
	}
	if a.Name == "" {
		return errors.New("empty account name")
	}
	if strings.ContainsRune(a.Name, '/') {
		return errors.Errorf("account name %q contains '/'", a.Name)
	}
	return nil
}
