package anoma

import (
	"errors"
	"fmt"

	"github.com/isabella232/anoma/types"
)

// ErrChannelClosed signals that the request channel closed. It is a
// fatal protocol error: the shell loop terminates and propagates it
// to the process.
var ErrChannelClosed = errors.New("shell request channel closed")

// ReplyError signals that a reply could not be delivered on a
// request's reply channel. Fatal, like ErrChannelClosed.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("cannot reply to %s request", e.Msg)
}

// DecodingError reports malformed transaction bytes. The caller is
// informed; no state is mutated.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("error decoding a transaction from bytes: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// IsDecoding checks whether err is a DecodingError.
func IsDecoding(err error) (*DecodingError, bool) {
	var d *DecodingError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// TxRunnerError reports a transaction-runner fault. The transaction
// is treated as failed; no partial writes persist.
type TxRunnerError struct {
	Err error
}

func (e *TxRunnerError) Error() string {
	return fmt.Sprintf("transaction runner error: %v", e.Err)
}

func (e *TxRunnerError) Unwrap() error { return e.Err }

// PredicateError reports a validity-predicate runner fault for a
// specific account. Distinct from a predicate *rejection*, which is a
// verdict, not an error.
type PredicateError struct {
	Addr types.Address
	Err  error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("validity predicate for %s runner error: %v", e.Addr, e.Err)
}

func (e *PredicateError) Unwrap() error { return e.Err }

// IsPredicate checks whether err is a PredicateError.
func IsPredicate(err error) (*PredicateError, bool) {
	var p *PredicateError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}
