package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isabella232/anoma/types"
)

var (
	va = types.ValidatorAddress("va")
	ba = types.BasicAddress("ba")
)

func openTestStore(t *testing.T) *Storage {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetChainIDOnce(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetChainID("test-chain-1"))
	require.Equal(t, "test-chain-1", s.ChainID())

	// Idempotent for the same id, an error for a different one.
	require.NoError(t, s.SetChainID("test-chain-1"))
	require.ErrorIs(t, s.SetChainID("other-chain"), ErrChainIDSet)
}

func TestLastStateEmptyBeforeCommit(t *testing.T) {
	s := openTestStore(t)

	st, err := s.LoadLastState()
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestCommitAdvancesStateAndRoot(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginBlock(types.BlockHash{1}, 1))
	require.NoError(t, s.Write(types.Key(va, "balance/eth"), []byte{0x10, 0x27}))
	preRoot := s.MerkleRoot()
	require.NoError(t, s.Commit())

	require.NotEqual(t, preRoot, s.MerkleRoot())

	st, err := s.LoadLastState()
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, types.BlockHeight(1), st.Height)
	require.Equal(t, s.MerkleRoot(), st.Root)
}

func TestRootRecomputedOnlyAtCommit(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginBlock(types.BlockHash{1}, 1))
	require.NoError(t, s.Commit())
	root := s.MerkleRoot()

	require.NoError(t, s.BeginBlock(types.BlockHash{2}, 2))
	require.NoError(t, s.Write(types.Key(ba, "balance/eth"), []byte{0x64}))
	require.Equal(t, root, s.MerkleRoot())

	require.NoError(t, s.Commit())
	require.NotEqual(t, root, s.MerkleRoot())
}

func TestHeightMustIncrease(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginBlock(types.BlockHash{1}, 1))
	require.NoError(t, s.Commit())

	require.ErrorIs(t, s.BeginBlock(types.BlockHash{1}, 1), ErrNonMonotonicHeight)
	require.NoError(t, s.BeginBlock(types.BlockHash{2}, 2))
}

func TestValidityPredicate(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ValidityPredicate(va)
	require.ErrorIs(t, err, ErrNoValidityPredicate)

	require.NoError(t, s.Write(types.PredicateKey(va), []byte("vp/accept")))
	code, err := s.ValidityPredicate(va)
	require.NoError(t, err)
	require.Equal(t, []byte("vp/accept"), code)
}

func TestDeleteRemovesKey(t *testing.T) {
	s := openTestStore(t)
	k := types.Key(va, "tmp")

	require.NoError(t, s.Write(k, []byte{1}))
	require.NoError(t, s.Delete(k))
	_, ok, err := s.Read(k)
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete(k))
}

func TestEmptyKeyRejected(t *testing.T) {
	s := openTestStore(t)
	require.ErrorIs(t, s.Write(types.StorageKey{}, []byte{1}), ErrEmptyKey)
	require.ErrorIs(t, s.Write(types.Key(va, ""), []byte{1}), ErrEmptyKey)
}

func TestMalformedAddressRejected(t *testing.T) {
	s := openTestStore(t)
	// A '/' in the account name would make the flat key form
	// ambiguous.
	k := types.Key(types.BasicAddress("a/b"), "c")
	require.ErrorIs(t, s.Write(k, []byte{1}), ErrInvalidKey)

	k = types.Key(types.Address{Kind: 9, Name: "x"}, "c")
	require.ErrorIs(t, s.Write(k, []byte{1}), ErrInvalidKey)
}

func TestSameNameDifferentKindIsolated(t *testing.T) {
	s := openTestStore(t)
	vk := types.Key(types.ValidatorAddress("acct"), "n")
	bk := types.Key(types.BasicAddress("acct"), "n")

	require.NoError(t, s.Write(vk, []byte{1}))
	require.NoError(t, s.Write(bk, []byte{2}))

	v, ok, err := s.Read(vk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1}, v)

	b, ok, err := s.Read(bk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{2}, b)
}

func TestReadReturnsCopy(t *testing.T) {
	s := openTestStore(t)
	k := types.Key(va, "n")
	require.NoError(t, s.Write(k, []byte{1, 2, 3}))

	v, ok, err := s.Read(k)
	require.NoError(t, err)
	require.True(t, ok)
	v[0] = 99

	again, _, err := s.Read(k)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, again)
}

func TestReopenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetChainID("test-chain-1"))
	require.NoError(t, s.BeginBlock(types.BlockHash{9}, 1))
	require.NoError(t, s.Write(types.Key(va, "balance/eth"), []byte{0x10, 0x27}))
	require.NoError(t, s.Commit())
	root := s.MerkleRoot()
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, "test-chain-1", s2.ChainID())
	require.Equal(t, root, s2.MerkleRoot())

	st, err := s2.LoadLastState()
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, types.BlockHeight(1), st.Height)

	v, ok, err := s2.Read(types.Key(va, "balance/eth"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0x10, 0x27}, v)
}

func TestComputeRootDeterministic(t *testing.T) {
	a := map[string][]byte{"va/x": {1}, "ba/y": {2}, "ba/z": {3}}
	b := map[string][]byte{"ba/z": {3}, "va/x": {1}, "ba/y": {2}}
	require.Equal(t, computeRoot(a), computeRoot(b))

	// Key/value binding: swapping values across keys changes the root.
	c := map[string][]byte{"va/x": {2}, "ba/y": {1}, "ba/z": {3}}
	require.NotEqual(t, computeRoot(a), computeRoot(c))
}
