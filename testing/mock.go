// Package anomatest provides test utilities for shell development: a
// configurable mock execution engine and a harness that runs a full
// shell over an in-memory store.
package anomatest

import (
	"context"
	"sync/atomic"

	"github.com/isabella232/anoma/vm"
)

// Compile-time check that MockEngine satisfies the engine interface.
var _ vm.Engine = (*MockEngine)(nil)

// MockEngine is a configurable execution engine. Both methods are
// configurable via function fields; unconfigured methods stage
// nothing and accept everything.
type MockEngine struct {
	ExecuteTxFn     func(context.Context, vm.TxEnv) error
	EvalPredicateFn func(context.Context, vm.PredicateEnv) (bool, error)

	// Call counters (atomic: predicates run concurrently).
	ExecuteTxCalls     atomic.Int64
	EvalPredicateCalls atomic.Int64
}

func (m *MockEngine) ExecuteTx(ctx context.Context, env vm.TxEnv) error {
	m.ExecuteTxCalls.Add(1)
	if m.ExecuteTxFn != nil {
		return m.ExecuteTxFn(ctx, env)
	}
	return nil
}

func (m *MockEngine) EvalPredicate(ctx context.Context, env vm.PredicateEnv) (bool, error) {
	m.EvalPredicateCalls.Add(1)
	if m.EvalPredicateFn != nil {
		return m.EvalPredicateFn(ctx, env)
	}
	return true, nil
}
