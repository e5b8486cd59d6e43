package storage

import (
	"crypto/sha256"
	"sort"

	"github.com/isabella232/anoma/types"
)

var leafSeparator = []byte{0x00}

// computeRoot builds a binary Merkle tree over the state's entries,
// sorted by key, and returns its root. Leaves bind key and value so
// moving a value between keys changes the root. An odd level
// duplicates its last node. The empty state hashes to sha256(nil).
func computeRoot(state map[string][]byte) types.MerkleRoot {
	if len(state) == 0 {
		return sha256.Sum256(nil)
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	level := make([]types.MerkleRoot, len(keys))
	for i, k := range keys {
		h := sha256.New()
		h.Write([]byte(k))
		h.Write(leafSeparator)
		h.Write(state[k])
		copy(level[i][:], h.Sum(nil))
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := level[:len(level)/2]
		for i := 0; i < len(level); i += 2 {
			h := sha256.New()
			h.Write(level[i][:])
			h.Write(level[i+1][:])
			var parent types.MerkleRoot
			copy(parent[:], h.Sum(nil))
			next[i/2] = parent
		}
		level = next
	}
	return level[0]
}
