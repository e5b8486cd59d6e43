package shell

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/types"
	"github.com/isabella232/anoma/vm"
	"github.com/isabella232/anoma/writelog"
)

// stagedView exposes the post-state of the in-flight transaction: the
// write log's staged modifications shadow committed storage.
type stagedView struct {
	log   *writelog.WriteLog
	store vm.StateReader
}

func (v stagedView) Read(key types.StorageKey) ([]byte, bool, error) {
	if mod, ok := v.log.Read(key); ok {
		if mod.Deleted {
			return nil, false, nil
		}
		return mod.Value, true, nil
	}
	return v.store.Read(key)
}

// applyTx runs the full acceptance protocol for one transaction:
// charge the base fee, decode, execute the transaction code against
// the write log, evaluate the validity predicate of every affected
// account against the pre and post state, and promote or drop the
// staged modifications. Gas is finalized before the promotion so that
// a transaction pushing the block over its gas limit leaves the block
// write log untouched.
func (s *Shell) applyTx(txBytes []byte) anoma.ApplyTxResult {
	if err := s.guard.requireOpen("ApplyTx"); err != nil {
		return anoma.ApplyTxResult{Err: err}
	}
	ctx := context.Background()

	if err := s.gas.AddBaseTransactionFee(len(txBytes)); err != nil {
		return s.failTx(err)
	}
	tx, err := types.DecodeTx(txBytes)
	if err != nil {
		return s.failTx(&anoma.DecodingError{Err: err})
	}

	post := s.postState()
	if err := s.txRunner.Run(ctx, post, s.log, tx.Code, tx.Data); err != nil {
		s.log.DropTx()
		return s.failTx(&anoma.TxRunnerError{Err: err})
	}

	changed := s.log.ChangedKeys()
	accept, rejectedBy, err := s.runPredicates(ctx, tx.Data, changed)
	if err != nil {
		s.log.DropTx()
		return s.failTx(err)
	}

	gasUsed, gasErr := s.gas.FinalizeTransaction()
	gasMtc.Add(float64(gasUsed))
	if gasErr != nil {
		s.log.DropTx()
		txMtc.WithLabelValues("failed").Inc()
		return anoma.ApplyTxResult{GasUsed: gasUsed, Err: gasErr}
	}

	if accept {
		s.log.CommitTx()
		txMtc.WithLabelValues("applied").Inc()
	} else {
		s.log.DropTx()
		txMtc.WithLabelValues("declined").Inc()
		s.logger.Debug("transaction declined",
			zap.Int("predicates", len(rejectedBy)))
	}
	return anoma.ApplyTxResult{
		GasUsed:    gasUsed,
		Declined:   !accept,
		RejectedBy: rejectedBy,
	}
}

// failTx finalizes gas for a transaction that failed before reaching
// a verdict. The base fee already charged stays folded into the block
// total; the cause of the failure dominates any gas error.
func (s *Shell) failTx(cause error) anoma.ApplyTxResult {
	gasUsed, _ := s.gas.FinalizeTransaction()
	gasMtc.Add(float64(gasUsed))
	txMtc.WithLabelValues("failed").Inc()
	return anoma.ApplyTxResult{GasUsed: gasUsed, Err: cause}
}

func (s *Shell) postState() stagedView {
	return stagedView{log: s.log, store: s.store}
}

// runPredicates evaluates the validity predicate of every account
// touched by the staged modifications, one goroutine per account. The
// first genuine rejection cancels the siblings still in flight; a
// fault never does.
//
// The reduction is deterministic regardless of scheduling: a rejection
// dominates the outcome and can only be cut short by another
// rejection, and when no account rejects every predicate runs to
// completion, so faults surface in account order.
func (s *Shell) runPredicates(ctx context.Context, txData []byte, changed []types.StorageKey) (bool, []types.Address, error) {
	accounts := affectedAccounts(changed)
	if len(accounts) == 0 {
		return true, nil, nil
	}

	// Predicate code is read from committed storage, never from the
	// staged modifications: a transaction cannot swap in a permissive
	// predicate for its own acceptance check.
	codes := make([][]byte, len(accounts))
	for i, addr := range accounts {
		code, err := s.store.ValidityPredicate(addr)
		if err != nil {
			return false, nil, &anoma.PredicateError{Addr: addr, Err: err}
		}
		codes[i] = code
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pre := vm.StateReader(s.store)
	post := s.postState()
	results := make(chan vm.Verdict, len(accounts))
	var wg sync.WaitGroup
	for i, addr := range accounts {
		wg.Add(1)
		go func(code []byte, owner types.Address) {
			defer wg.Done()
			s.vpRunner.Run(ctx, code, txData, owner, pre, post, changed, results)
		}(codes[i], addr)
	}

	verdicts := make(map[types.Address]vm.Verdict, len(accounts))
	for range accounts {
		v := <-results
		verdicts[v.Owner] = v
		// Only a genuine rejection settles the outcome early. A fault
		// must not cancel a sibling whose rejection would dominate it,
		// or the settled verdict kind would depend on scheduling.
		if v.Err == nil && !v.Accept {
			cancel()
		}
	}
	wg.Wait()

	var rejectedBy []types.Address
	var fault error
	for _, addr := range accounts {
		v := verdicts[addr]
		switch {
		case v.Err == nil && !v.Accept:
			rejectedBy = append(rejectedBy, addr)
		case v.Err != nil && !errors.Is(v.Err, context.Canceled) && fault == nil:
			fault = &anoma.PredicateError{Addr: addr, Err: v.Err}
		}
	}
	if len(rejectedBy) > 0 {
		return false, rejectedBy, nil
	}
	if fault != nil {
		return false, nil, fault
	}
	return true, nil, nil
}

// affectedAccounts derives the set of accounts whose validity
// predicates must accept the transaction from the keys it modified.
// The input is sorted, so the output is in account order.
func affectedAccounts(keys []types.StorageKey) []types.Address {
	seen := make(map[types.Address]bool, len(keys))
	accounts := make([]types.Address, 0, len(keys))
	for _, k := range keys {
		if !seen[k.Addr] {
			seen[k.Addr] = true
			accounts = append(accounts, k.Addr)
		}
	}
	return accounts
}
