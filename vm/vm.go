// Package vm defines the boundary to the sandboxed code-execution
// engine that runs transaction and validity-predicate code, and the
// runners the shell uses to invoke it.
//
// The concrete sandbox is an external collaborator behind the Engine
// interface; BuiltinEngine is a deterministic in-process substitute
// used by the default node and by tests.
package vm

import (
	"context"

	"github.com/isabella232/anoma/types"
)

// StateReader is the read-only view of account storage handed to
// sandboxed code. The shell composes it from storage and the write
// log so reads observe staged-but-unflushed writes.
type StateReader interface {
	Read(key types.StorageKey) (value []byte, found bool, err error)
}

// StateWriter stages mutations into the write log. Only transaction
// code receives one; predicates are read-only.
type StateWriter interface {
	Write(key types.StorageKey, value []byte)
	Delete(key types.StorageKey)
}

// TxEnv is the environment a transaction executes in.
type TxEnv struct {
	Code []byte
	Data []byte
	// State reads through the write log into storage.
	State StateReader
	// Writer stages this transaction's mutations.
	Writer StateWriter
}

// PredicateEnv is the environment a validity predicate evaluates in.
// Pre reads the state before this transaction; Post additionally
// observes the transaction's staged writes.
type PredicateEnv struct {
	Code  []byte
	Data  []byte
	Owner types.Address
	Pre   StateReader
	Post  StateReader
	// ChangedKeys is the full set of keys the transaction touched,
	// across all accounts.
	ChangedKeys []types.StorageKey
}

// Engine executes untrusted code. Implementations must be
// deterministic: the same environment always yields the same outcome.
type Engine interface {
	// ExecuteTx runs transaction code. Mutations go through
	// env.Writer only; a returned error aborts the transaction.
	ExecuteTx(ctx context.Context, env TxEnv) error
	// EvalPredicate runs a validity predicate and reports its
	// accept/reject verdict.
	EvalPredicate(ctx context.Context, env PredicateEnv) (bool, error)
}
