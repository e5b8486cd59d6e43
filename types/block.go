package types

import "encoding/hex"

// BlockHash is the opaque 32-byte identifier of a block.
type BlockHash [32]byte

// BlockHeight is the monotonically increasing block sequence number.
type BlockHeight uint64

// MerkleRoot summarizes committed storage state as of the last
// committed block height. It is recomputed only at block commit.
type MerkleRoot [32]byte

func (h BlockHash) String() string  { return hex.EncodeToString(h[:]) }
func (r MerkleRoot) String() string { return hex.EncodeToString(r[:]) }

// BlockState is the (root, height) pair of the last committed block.
// A nil *BlockState means no block has been committed yet.
type BlockState struct {
	Root   MerkleRoot  `cramberry:"1"`
	Height BlockHeight `cramberry:"2"`
}
