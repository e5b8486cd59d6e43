package vm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/isabella232/anoma/types"
)

// Verdict is a single predicate evaluation result, delivered on the
// shell's result channel.
type Verdict struct {
	Owner  types.Address
	Accept bool
	Err    error
}

// TxRunner invokes the engine for transaction code. A panic inside
// the engine is converted into an error so a misbehaving sandbox
// cannot take down the shell.
type TxRunner struct {
	engine Engine
}

// NewTxRunner creates a transaction runner backed by engine.
func NewTxRunner(engine Engine) TxRunner {
	return TxRunner{engine: engine}
}

// Run executes transaction code against the given views. Staged
// writes go through writer only; storage is never written directly.
func (r TxRunner) Run(ctx context.Context, state StateReader, writer StateWriter, code, data []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("transaction code panicked: %v", rec)
		}
	}()
	return r.engine.ExecuteTx(ctx, TxEnv{Code: code, Data: data, State: state, Writer: writer})
}

// VPRunner invokes the engine for validity-predicate code.
type VPRunner struct {
	engine Engine
}

// NewVPRunner creates a predicate runner backed by engine.
func NewVPRunner(engine Engine) VPRunner {
	return VPRunner{engine: engine}
}

// Run evaluates owner's predicate and delivers exactly one Verdict on
// results. It is safe to call from a worker goroutine; the channel
// must be buffered so delivery never blocks.
func (r VPRunner) Run(ctx context.Context, code, data []byte, owner types.Address, pre, post StateReader, changed []types.StorageKey, results chan<- Verdict) {
	accept, err := r.eval(ctx, code, data, owner, pre, post, changed)
	results <- Verdict{Owner: owner, Accept: accept, Err: err}
}

func (r VPRunner) eval(ctx context.Context, code, data []byte, owner types.Address, pre, post StateReader, changed []types.StorageKey) (accept bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			accept = false
			err = errors.Errorf("validity predicate panicked: %v", rec)
		}
	}()
	return r.engine.EvalPredicate(ctx, PredicateEnv{
		Code:        code,
		Data:        data,
		Owner:       owner,
		Pre:         pre,
		Post:        post,
		ChangedKeys: changed,
	})
}
