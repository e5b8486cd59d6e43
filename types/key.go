package types

// PredicateSubKey is the reserved sub-key under which an account's
// validity predicate code is stored.
const PredicateSubKey = "vp"

// StorageKey names a mutable storage location: an account address plus
// a sub-key within that account's storage sub-space.
type StorageKey struct {
	Addr   Address `cramberry:"1"`
	SubKey string  `cramberry:"2"`
}

// Key constructs a StorageKey.
func Key(addr Address, subKey string) StorageKey {
	return StorageKey{Addr: addr, SubKey: subKey}
}

// PredicateKey returns the storage key holding addr's validity
// predicate code.
func PredicateKey(addr Address) StorageKey {
	return Key(addr, PredicateSubKey)
}

// String renders the key as "<kind>/<account>/<sub-key>", the
// canonical flat form used for ordering and for the durable layer.
// The form is injective: account names may not contain '/', so the
// kind and name segments parse back unambiguously, and accounts of
// different kinds never share a sub-space.
func (k StorageKey) String() string {
	return k.Addr.Kind.String() + "/" + k.Addr.Name + "/" + k.SubKey
}
