package anomatest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/local"
	"github.com/isabella232/anoma/shell"
	"github.com/isabella232/anoma/storage"
	"github.com/isabella232/anoma/types"
	"github.com/isabella232/anoma/vm"
)

// Harness runs a shell over an in-memory store on a background
// goroutine and exposes the request protocol as plain method calls
// that fail the test on error.
type Harness struct {
	t        *testing.T
	store    *storage.Storage
	requests chan anoma.Request
	client   *local.Client
	done     chan error
}

// NewHarness starts a shell executing on the given engine. The shell
// and its store are torn down at test cleanup.
func NewHarness(t *testing.T, engine vm.Engine, opts ...shell.Option) *Harness {
	t.Helper()
	store, err := storage.Open("")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	requests := make(chan anoma.Request, 16)
	h := &Harness{
		t:        t,
		store:    store,
		requests: requests,
		client:   local.NewClient(requests),
		done:     make(chan error, 1),
	}
	sh := shell.New(requests, store, engine, opts...)
	go func() { h.done <- sh.Run() }()
	t.Cleanup(h.close)
	return h
}

func (h *Harness) close() {
	close(h.requests)
	select {
	case err := <-h.done:
		if !errors.Is(err, anoma.ErrChannelClosed) {
			h.t.Errorf("shell exited with %v", err)
		}
	case <-time.After(5 * time.Second):
		h.t.Error("shell did not exit after request channel close")
	}
	if err := h.store.Close(); err != nil {
		h.t.Errorf("failed to close store: %v", err)
	}
}

// Client returns the underlying client for direct access.
func (h *Harness) Client() *local.Client { return h.client }

// Store returns the underlying store for direct access.
func (h *Harness) Store() *storage.Storage { return h.store }

// SeedAccount installs a validity predicate and token balances for an
// account directly in the store, the way genesis seeding does. The
// writes land with the next committed block.
func (h *Harness) SeedAccount(addr types.Address, predicate []byte, balances map[string]uint64) {
	h.t.Helper()
	if err := h.store.Write(types.PredicateKey(addr), predicate); err != nil {
		h.t.Fatalf("failed to seed predicate for %s: %v", addr, err)
	}
	for token, amount := range balances {
		key := types.Key(addr, vm.BalanceSubKeyPrefix+token)
		if err := h.store.Write(key, vm.EncodeBalance(amount)); err != nil {
			h.t.Fatalf("failed to seed balance for %s: %v", addr, err)
		}
	}
}

// InitChain records the chain identifier.
func (h *Harness) InitChain(chainID string) {
	h.t.Helper()
	if err := h.client.InitChain(context.Background(), chainID); err != nil {
		h.t.Fatalf("InitChain failed: %v", err)
	}
}

// GetInfo returns the last committed block state.
func (h *Harness) GetInfo() *types.BlockState {
	h.t.Helper()
	state, err := h.client.GetInfo(context.Background())
	if err != nil {
		h.t.Fatalf("GetInfo failed: %v", err)
	}
	return state
}

// MempoolValidate runs the admission check and returns its verdict.
func (h *Harness) MempoolValidate(tx []byte, kind anoma.MempoolTxKind) error {
	h.t.Helper()
	return h.client.MempoolValidate(context.Background(), tx, kind)
}

// BeginBlock opens a block at the given height.
func (h *Harness) BeginBlock(height types.BlockHeight) {
	h.t.Helper()
	var hash types.BlockHash
	hash[0] = byte(height)
	if err := h.client.BeginBlock(context.Background(), hash, height); err != nil {
		h.t.Fatalf("BeginBlock (height=%d) failed: %v", height, err)
	}
}

// ApplyTx applies one transaction and returns the full result.
func (h *Harness) ApplyTx(tx []byte) anoma.ApplyTxResult {
	h.t.Helper()
	result, err := h.client.ApplyTx(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("ApplyTx failed: %v", err)
	}
	return result
}

// EndBlock closes the transaction stream of the open block.
func (h *Harness) EndBlock(height types.BlockHeight) {
	h.t.Helper()
	if err := h.client.EndBlock(context.Background(), height); err != nil {
		h.t.Fatalf("EndBlock (height=%d) failed: %v", height, err)
	}
}

// CommitBlock commits the open block and returns the new root.
func (h *Harness) CommitBlock() types.MerkleRoot {
	h.t.Helper()
	result, err := h.client.CommitBlock(context.Background())
	if err != nil {
		h.t.Fatalf("CommitBlock failed: %v", err)
	}
	if result.Err != nil {
		h.t.Fatalf("CommitBlock failed: %v", result.Err)
	}
	return result.Root
}

// CommitEmptyBlock runs a begin/end/commit cycle with no
// transactions, flushing any seeded genesis state.
func (h *Harness) CommitEmptyBlock(height types.BlockHeight) types.MerkleRoot {
	h.t.Helper()
	h.BeginBlock(height)
	h.EndBlock(height)
	return h.CommitBlock()
}
