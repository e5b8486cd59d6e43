package shell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/gas"
	"github.com/isabella232/anoma/shell"
	anomatest "github.com/isabella232/anoma/testing"
	"github.com/isabella232/anoma/types"
	"github.com/isabella232/anoma/vm"
)

var (
	validator = types.ValidatorAddress("va")
	basic     = types.BasicAddress("ba")
)

func transferTx(t *testing.T, amount uint64) []byte {
	t.Helper()
	tx, err := vm.TransferTx(validator, basic, "eth", amount)
	require.NoError(t, err)
	return tx
}

func encodeTx(t *testing.T, code string) []byte {
	t.Helper()
	raw, err := types.Tx{Code: []byte(code)}.Encode()
	require.NoError(t, err)
	return raw
}

// seedLedger installs balance-checking predicates and starting
// balances for both test accounts and commits them in a genesis
// block.
func seedLedger(t *testing.T, h *anomatest.Harness) {
	t.Helper()
	h.InitChain("anoma-test-chain")
	h.SeedAccount(validator, []byte(vm.CodeVPBalance), map[string]uint64{"eth": 10_000})
	h.SeedAccount(basic, []byte(vm.CodeVPBalance), map[string]uint64{"eth": 100})
	h.CommitEmptyBlock(1)
}

func TestGetInfoBeforeAnyCommit(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	h.InitChain("anoma-test-chain")
	require.Nil(t, h.GetInfo())
}

func TestGetInfoAfterCommit(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	seedLedger(t, h)

	state := h.GetInfo()
	require.NotNil(t, state)
	require.Equal(t, types.BlockHeight(1), state.Height)
	require.Equal(t, h.Store().MerkleRoot(), state.Root)
}

func TestApplyTxAccepted(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	seedLedger(t, h)
	before := h.GetInfo().Root

	h.BeginBlock(2)
	result := h.ApplyTx(transferTx(t, 75))
	require.NoError(t, result.Err)
	require.False(t, result.Declined)
	require.Positive(t, result.GasUsed)
	h.EndBlock(2)
	root := h.CommitBlock()
	require.NotEqual(t, before, root)

	src, found, err := h.Store().Read(types.Key(validator, vm.BalanceSubKeyPrefix+"eth"))
	require.NoError(t, err)
	require.True(t, found)
	balance, err := vm.DecodeBalance(src)
	require.NoError(t, err)
	require.Equal(t, uint64(9_925), balance)

	dst, found, err := h.Store().Read(types.Key(basic, vm.BalanceSubKeyPrefix+"eth"))
	require.NoError(t, err)
	require.True(t, found)
	balance, err = vm.DecodeBalance(dst)
	require.NoError(t, err)
	require.Equal(t, uint64(175), balance)
}

func TestApplyTxDeclinedByPredicate(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	h.InitChain("anoma-test-chain")
	h.SeedAccount(validator, []byte(vm.CodeVPAccept), map[string]uint64{"eth": 10_000})
	h.SeedAccount(basic, []byte(vm.CodeVPReject), map[string]uint64{"eth": 100})
	before := h.CommitEmptyBlock(1)

	h.BeginBlock(2)
	result := h.ApplyTx(transferTx(t, 75))
	require.NoError(t, result.Err)
	require.True(t, result.Declined)
	require.Equal(t, []types.Address{basic}, result.RejectedBy)
	require.Positive(t, result.GasUsed)
	h.EndBlock(2)

	// The declined transaction staged nothing, so the root is
	// unchanged.
	require.Equal(t, before, h.CommitBlock())
}

func TestApplyTxMalformed(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	seedLedger(t, h)

	h.BeginBlock(2)
	result := h.ApplyTx([]byte("not a transaction"))
	require.Error(t, result.Err)
	_, ok := anoma.IsDecoding(result.Err)
	require.True(t, ok)
	// The base fee is charged even when decoding fails.
	require.Positive(t, result.GasUsed)
}

func TestApplyTxRunnerFailure(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	seedLedger(t, h)
	before := h.GetInfo().Root

	h.BeginBlock(2)
	tx := transferTx(t, 1_000_000) // exceeds the source balance
	result := h.ApplyTx(tx)
	require.Error(t, result.Err)
	var runnerErr *anoma.TxRunnerError
	require.ErrorAs(t, result.Err, &runnerErr)
	require.ErrorIs(t, result.Err, vm.ErrInsufficientFunds)
	h.EndBlock(2)
	require.Equal(t, before, h.CommitBlock())
}

func TestApplyTxPredicatePanic(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	h.InitChain("anoma-test-chain")
	h.SeedAccount(validator, []byte(vm.CodeVPPanic), map[string]uint64{"eth": 10_000})
	h.SeedAccount(basic, []byte(vm.CodeVPAccept), map[string]uint64{"eth": 100})
	before := h.CommitEmptyBlock(1)

	h.BeginBlock(2)
	result := h.ApplyTx(transferTx(t, 75))
	require.Error(t, result.Err)
	predErr, ok := anoma.IsPredicate(result.Err)
	require.True(t, ok)
	require.Equal(t, validator, predErr.Addr)
	h.EndBlock(2)
	require.Equal(t, before, h.CommitBlock())
}

func TestApplyTxMissingPredicate(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	h.InitChain("anoma-test-chain")
	// Balances but no predicates: the acceptance check cannot run.
	require.NoError(t, h.Store().Write(types.Key(validator, vm.BalanceSubKeyPrefix+"eth"), vm.EncodeBalance(10_000)))
	require.NoError(t, h.Store().Write(types.Key(basic, vm.BalanceSubKeyPrefix+"eth"), vm.EncodeBalance(100)))
	h.CommitEmptyBlock(1)

	h.BeginBlock(2)
	result := h.ApplyTx(transferTx(t, 75))
	require.Error(t, result.Err)
	_, ok := anoma.IsPredicate(result.Err)
	require.True(t, ok)
}

func TestApplyTxOutsideBlock(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	seedLedger(t, h)

	result := h.ApplyTx(transferTx(t, 1))
	require.Error(t, result.Err)
	require.Zero(t, result.GasUsed)
}

func TestApplyTxBlockGasExhausted(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine(),
		shell.WithGasLimits(gas.DefaultTxGasLimit, 10))
	seedLedger(t, h)
	before := h.GetInfo().Root

	h.BeginBlock(2)
	result := h.ApplyTx(transferTx(t, 75))
	require.ErrorIs(t, result.Err, gas.ErrBlockGasExceeded)
	h.EndBlock(2)

	// Gas is finalized before the staged writes are promoted, so the
	// over-budget transaction leaves no trace in the block.
	require.Equal(t, before, h.CommitBlock())
}

func TestMempoolValidate(t *testing.T) {
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
	h.InitChain("anoma-test-chain")

	require.NoError(t, h.MempoolValidate(transferTx(t, 1), anoma.MempoolTxNew))
	require.NoError(t, h.MempoolValidate(transferTx(t, 1), anoma.MempoolTxRecheck))

	err := h.MempoolValidate([]byte{0xff, 0x00, 0xfe}, anoma.MempoolTxNew)
	require.Error(t, err)
	_, ok := anoma.IsDecoding(err)
	require.True(t, ok)
}

func TestDeterministicRoots(t *testing.T) {
	run := func(t *testing.T) types.MerkleRoot {
		h := anomatest.NewHarness(t, vm.NewBuiltinEngine())
		seedLedger(t, h)
		h.BeginBlock(2)
		h.ApplyTx(transferTx(t, 10))
		h.ApplyTx(transferTx(t, 20))
		h.EndBlock(2)
		return h.CommitBlock()
	}
	require.Equal(t, run(t), run(t))
}

func TestPredicateRejectionCancelsSiblings(t *testing.T) {
	// One predicate rejects immediately; the other blocks until its
	// context is cancelled. The transaction must still settle as
	// declined by the rejecting account.
	engine := &anomatest.MockEngine{
		EvalPredicateFn: func(ctx context.Context, env vm.PredicateEnv) (bool, error) {
			if env.Owner == basic {
				return false, nil
			}
			<-ctx.Done()
			return false, ctx.Err()
		},
	}
	h := anomatest.NewHarness(t, engine)
	h.InitChain("anoma-test-chain")
	h.SeedAccount(validator, []byte("vp"), nil)
	h.SeedAccount(basic, []byte("vp"), nil)
	h.CommitEmptyBlock(1)

	stage := func(ctx context.Context, env vm.TxEnv) error {
		env.Writer.Write(types.Key(validator, "n"), []byte{1})
		env.Writer.Write(types.Key(basic, "n"), []byte{2})
		return nil
	}
	engine.ExecuteTxFn = stage

	tx := encodeTx(t, "any")
	h.BeginBlock(2)
	result := h.ApplyTx(tx)
	require.NoError(t, result.Err)
	require.True(t, result.Declined)
	require.Equal(t, []types.Address{basic}, result.RejectedBy)
	require.Equal(t, int64(2), engine.EvalPredicateCalls.Load())
}

func TestPredicateFaultDoesNotCancelSiblings(t *testing.T) {
	// One predicate faults and the other rejects. Whichever finishes
	// first, the transaction settles as declined by the rejecting
	// account: a fault must not cut short a sibling whose rejection
	// dominates it.
	for _, faultFirst := range []bool{true, false} {
		name := "reject first"
		if faultFirst {
			name = "fault first"
		}
		t.Run(name, func(t *testing.T) {
			gate := make(chan struct{})
			engine := &anomatest.MockEngine{
				ExecuteTxFn: func(ctx context.Context, env vm.TxEnv) error {
					env.Writer.Write(types.Key(validator, "n"), []byte{1})
					env.Writer.Write(types.Key(basic, "n"), []byte{2})
					return nil
				},
				EvalPredicateFn: func(ctx context.Context, env vm.PredicateEnv) (bool, error) {
					faults := env.Owner == validator
					if faults == faultFirst {
						defer close(gate)
					} else {
						<-gate
						// A sandbox yields to its context before
						// producing a verdict.
						select {
						case <-ctx.Done():
							return false, ctx.Err()
						case <-time.After(50 * time.Millisecond):
						}
					}
					if faults {
						return false, errors.New("sandbox fault")
					}
					return false, nil
				},
			}
			h := anomatest.NewHarness(t, engine)
			h.InitChain("anoma-test-chain")
			h.SeedAccount(validator, []byte("vp"), nil)
			h.SeedAccount(basic, []byte("vp"), nil)
			h.CommitEmptyBlock(1)

			h.BeginBlock(2)
			result := h.ApplyTx(encodeTx(t, "any"))
			require.NoError(t, result.Err)
			require.True(t, result.Declined)
			require.Equal(t, []types.Address{basic}, result.RejectedBy)
		})
	}
}

func TestPredicatesRunForEveryAffectedAccount(t *testing.T) {
	var owners []types.Address
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	engine := &anomatest.MockEngine{
		ExecuteTxFn: func(ctx context.Context, env vm.TxEnv) error {
			env.Writer.Write(types.Key(validator, "a"), []byte{1})
			env.Writer.Write(types.Key(validator, "b"), []byte{2})
			env.Writer.Write(types.Key(basic, "a"), []byte{3})
			return nil
		},
		EvalPredicateFn: func(ctx context.Context, env vm.PredicateEnv) (bool, error) {
			<-mu
			owners = append(owners, env.Owner)
			mu <- struct{}{}
			return true, nil
		},
	}
	h := anomatest.NewHarness(t, engine)
	h.InitChain("anoma-test-chain")
	h.SeedAccount(validator, []byte("vp"), nil)
	h.SeedAccount(basic, []byte("vp"), nil)
	h.CommitEmptyBlock(1)

	tx := encodeTx(t, "any")
	h.BeginBlock(2)
	result := h.ApplyTx(tx)
	require.NoError(t, result.Err)
	require.False(t, result.Declined)

	// One evaluation per account, not per key.
	require.Len(t, owners, 2)
	require.ElementsMatch(t, []types.Address{validator, basic}, owners)
}

func TestEndBlockerRuns(t *testing.T) {
	var heights []types.BlockHeight
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine(),
		shell.WithEndBlocker(func(height types.BlockHeight) error {
			heights = append(heights, height)
			return nil
		}))
	h.InitChain("anoma-test-chain")
	h.CommitEmptyBlock(1)
	h.CommitEmptyBlock(2)
	require.Equal(t, []types.BlockHeight{1, 2}, heights)
}

func TestEndBlockerFailure(t *testing.T) {
	boom := errors.New("boom")
	h := anomatest.NewHarness(t, vm.NewBuiltinEngine(),
		shell.WithEndBlocker(func(types.BlockHeight) error { return boom }))
	h.InitChain("anoma-test-chain")
	h.BeginBlock(1)
	err := h.Client().EndBlock(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}
