// Package storage implements the durable, height-versioned,
// Merkle-committed key/value store consumed by the shell.
//
// The working state lives in memory and is mirrored into LevelDB in a
// single atomic batch at block commit, together with the block
// metadata. The Merkle root is recomputed only at commit.
package storage

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/isabella232/anoma/pkg/log"
	"github.com/isabella232/anoma/types"
)

// Durable key layout. Account sub-space entries live under the "s/"
// prefix in their canonical flat form; block metadata under "m/".
const (
	subspacePrefix = "s/"
	metaChainID    = "m/chain_id"
	metaHeight     = "m/height"
	metaHash       = "m/hash"
	metaRoot       = "m/root"
)

var (
	// ErrChainIDSet is returned when InitChain runs against a store
	// whose chain id was already set.
	ErrChainIDSet = errors.New("chain id is already set")
	// ErrNoValidityPredicate is returned when an account has no
	// predicate code in its sub-space.
	ErrNoValidityPredicate = errors.New("no validity predicate")
	// ErrEmptyKey rejects writes to a key with an empty address or
	// sub-key.
	ErrEmptyKey = errors.New("empty storage key")
	// ErrInvalidKey rejects writes to a key whose address is
	// malformed, such as a name containing '/'.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNonMonotonicHeight rejects opening a block at or below the
	// last committed height.
	ErrNonMonotonicHeight = errors.New("block height is not monotonically increasing")
)

// Storage is single-writer: only the shell thread mutates it.
// Concurrent reads (predicate workers) are safe because no writes
// happen while predicates run.
type Storage struct {
	db     *leveldb.DB
	logger *zap.Logger

	// Working state of all account sub-spaces, keyed by the canonical
	// flat key form. Dirty keys are tracked for the commit batch.
	state map[string][]byte
	dirty map[string]bool

	chainID string

	// Working block identity, set by BeginBlock.
	blockHash   types.BlockHash
	blockHeight types.BlockHeight

	// Last committed block, loaded at open and advanced at Commit.
	committed *types.BlockState
	root      types.MerkleRoot
}

// Open opens (or creates) a store at path. An empty path opens an
// in-memory store, used for tests.
func Open(path string) (*Storage, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open db at %q", path)
	}
	s := &Storage{
		db:     db,
		logger: log.L().Named("storage"),
		state:  make(map[string][]byte),
		dirty:  make(map[string]bool),
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Storage) Close() error { return s.db.Close() }

// load hydrates the working state and block metadata from the durable
// layer.
func (s *Storage) load() error {
	if raw, err := s.db.Get([]byte(metaChainID), nil); err == nil {
		s.chainID = string(raw)
	} else if err != leveldb.ErrNotFound {
		return errors.Wrap(err, "load chain id")
	}

	iter := s.db.NewIterator(util.BytesPrefix([]byte(subspacePrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), subspacePrefix)
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		s.state[key] = value
	}
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "load subspaces")
	}

	rawHeight, err := s.db.Get([]byte(metaHeight), nil)
	if err == leveldb.ErrNotFound {
		return nil // fresh store
	}
	if err != nil {
		return errors.Wrap(err, "load height")
	}
	rawRoot, err := s.db.Get([]byte(metaRoot), nil)
	if err != nil {
		return errors.Wrap(err, "load merkle root")
	}
	var root types.MerkleRoot
	copy(root[:], rawRoot)
	s.committed = &types.BlockState{
		Root:   root,
		Height: types.BlockHeight(binary.BigEndian.Uint64(rawHeight)),
	}
	s.root = root
	s.blockHeight = s.committed.Height
	return nil
}

// SetChainID sets the chain id exactly once. A repeated attempt with
// the same id is a no-op; a different id is an error, so the store
// can never be silently re-initialized under another chain.
func (s *Storage) SetChainID(id string) error {
	if s.chainID != "" {
		if s.chainID == id {
			return nil
		}
		return errors.Wrapf(ErrChainIDSet, "have %q, got %q", s.chainID, id)
	}
	if err := s.db.Put([]byte(metaChainID), []byte(id), nil); err != nil {
		return errors.Wrap(err, "persist chain id")
	}
	s.chainID = id
	s.logger.Info("chain initialized", zap.String("chainID", id))
	return nil
}

// ChainID returns the chain id, or "" when the chain is uninitialized.
func (s *Storage) ChainID() string { return s.chainID }

// Read returns the committed value at key, if present. The returned
// slice is a copy; callers cannot mutate the stored state through it.
func (s *Storage) Read(key types.StorageKey) ([]byte, bool, error) {
	raw, ok := s.state[key.String()]
	if !ok {
		return nil, false, nil
	}
	v := make([]byte, len(raw))
	copy(v, raw)
	return v, true, nil
}

// Write sets a value in the working state. It becomes durable at the
// next Commit.
func (s *Storage) Write(key types.StorageKey, value []byte) error {
	if key.Addr.Name == "" || key.SubKey == "" {
		return ErrEmptyKey
	}
	if err := key.Addr.Validate(); err != nil {
		return errors.Wrap(ErrInvalidKey, err.Error())
	}
	v := make([]byte, len(value))
	copy(v, value)
	k := key.String()
	s.state[k] = v
	s.dirty[k] = true
	return nil
}

// Delete removes a key from the working state.
func (s *Storage) Delete(key types.StorageKey) error {
	k := key.String()
	if _, ok := s.state[k]; !ok {
		return nil
	}
	delete(s.state, k)
	s.dirty[k] = true
	return nil
}

// ValidityPredicate returns the predicate code gating mutations of
// addr's sub-space.
func (s *Storage) ValidityPredicate(addr types.Address) ([]byte, error) {
	code, ok, err := s.Read(types.PredicateKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrNoValidityPredicate, "account %s", addr)
	}
	return code, nil
}

// BeginBlock advances the working block identity. Heights must be
// strictly increasing over committed blocks.
func (s *Storage) BeginBlock(hash types.BlockHash, height types.BlockHeight) error {
	if s.committed != nil && height <= s.committed.Height {
		return errors.Wrapf(ErrNonMonotonicHeight, "committed %d, got %d", s.committed.Height, height)
	}
	s.blockHash = hash
	s.blockHeight = height
	return nil
}

// Commit persists the dirty working state and the block metadata in
// one atomic batch, recomputes the Merkle root and advances the
// committed block state.
func (s *Storage) Commit() error {
	root := computeRoot(s.state)

	batch := new(leveldb.Batch)
	for k := range s.dirty {
		if v, ok := s.state[k]; ok {
			batch.Put([]byte(subspacePrefix+k), v)
		} else {
			batch.Delete([]byte(subspacePrefix + k))
		}
	}
	var rawHeight [8]byte
	binary.BigEndian.PutUint64(rawHeight[:], uint64(s.blockHeight))
	batch.Put([]byte(metaHeight), rawHeight[:])
	batch.Put([]byte(metaHash), s.blockHash[:])
	batch.Put([]byte(metaRoot), root[:])

	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrapf(err, "commit block %d", s.blockHeight)
	}

	s.dirty = make(map[string]bool)
	s.root = root
	s.committed = &types.BlockState{Root: root, Height: s.blockHeight}
	s.logger.Debug("block committed",
		zap.Uint64("height", uint64(s.blockHeight)),
		zap.String("root", root.String()))
	return nil
}

// MerkleRoot returns the root as of the last committed block.
func (s *Storage) MerkleRoot() types.MerkleRoot { return s.root }

// Height returns the height of the last committed block, or zero
// when nothing has been committed yet.
func (s *Storage) Height() types.BlockHeight {
	if s.committed == nil {
		return 0
	}
	return s.committed.Height
}

// LoadLastState returns the (root, height) of the last committed
// block, or nil when nothing has been committed yet.
func (s *Storage) LoadLastState() (*types.BlockState, error) {
	if s.committed == nil {
		return nil, nil
	}
	st := *s.committed
	return &st, nil
}
