// Package anoma defines the protocol boundary between a consensus
// engine and the ledger shell.
//
// The engine side (the Protocol Bridge) translates wire requests into
// the typed messages below and sends them over a single request
// channel; the shell answers each message exactly once on the
// message's reply channel. Reply channels are single-use and buffered
// with capacity one, so the shell's send never blocks.
//
// The shell guarantees the following order of effects within a block:
//  1. BeginBlock resets the block gas counter and opens the block.
//  2. Each ApplyTx stages, decides and finalizes one transaction.
//  3. EndBlock runs end-of-block bookkeeping hooks.
//  4. CommitBlock flushes accepted writes and returns the new root.
package anoma

import "github.com/isabella232/anoma/types"

// MempoolTxKind distinguishes a first-seen transaction from a
// re-validation of one admitted earlier.
type MempoolTxKind uint8

const (
	// MempoolTxNew marks a transaction not validated by this node
	// before.
	MempoolTxNew MempoolTxKind = 1
	// MempoolTxRecheck marks a transaction validated at a previous
	// height that may need to be validated again.
	MempoolTxRecheck MempoolTxKind = 2
)

// Request is the sealed set of protocol messages accepted by the
// shell. Every request carries exactly one reply channel.
type Request interface {
	isRequest()
}

// InfoResult reports the last committed state, or a nil State when
// nothing has been committed yet.
type InfoResult struct {
	State *types.BlockState
}

// GetInfoRequest reads the last committed Merkle root and height.
// Valid at any time, including before InitChain.
type GetInfoRequest struct {
	Reply chan<- InfoResult
}

// InitChainRequest sets the chain id exactly once.
type InitChainRequest struct {
	ChainID string
	Reply   chan<- error
}

// MempoolValidateRequest performs cheap, non-mutating validation of a
// transaction for mempool admission. A nil reply means accept.
type MempoolValidateRequest struct {
	Tx    []byte
	Kind  MempoolTxKind
	Reply chan<- error
}

// BeginBlockRequest opens a block: resets the block gas counter and
// advances the working block identity.
type BeginBlockRequest struct {
	Hash   types.BlockHash
	Height types.BlockHeight
	Reply  chan<- error
}

// ApplyTxResult is the outcome of applying one transaction.
type ApplyTxResult struct {
	// GasUsed is the total gas charged to the transaction, reported
	// on every outcome so bookkeeping stays deterministic.
	GasUsed uint64
	// Declined is set when at least one validity predicate rejected
	// the transaction. Distinct from Err: a declined transaction is a
	// deliberate verdict, not a fault.
	Declined bool
	// RejectedBy lists the accounts whose predicates rejected, sorted.
	RejectedBy []types.Address
	// Err reports a fault (decoding, runner, predicate, gas or
	// storage failure). The transaction's staged writes are dropped.
	Err error
}

// ApplyTxRequest validates and applies one transaction.
type ApplyTxRequest struct {
	Tx    []byte
	Reply chan<- ApplyTxResult
}

// EndBlockRequest runs end-of-block bookkeeping hooks.
type EndBlockRequest struct {
	Height types.BlockHeight
	Reply  chan<- error
}

// CommitBlockResult carries the Merkle root after commit.
type CommitBlockResult struct {
	Root types.MerkleRoot
	Err  error
}

// CommitBlockRequest flushes the block's accepted writes into
// storage, persists the block and recomputes the Merkle root.
type CommitBlockRequest struct {
	Reply chan<- CommitBlockResult
}

func (GetInfoRequest) isRequest()         {}
func (InitChainRequest) isRequest()       {}
func (MempoolValidateRequest) isRequest() {}
func (BeginBlockRequest) isRequest()      {}
func (ApplyTxRequest) isRequest()         {}
func (EndBlockRequest) isRequest()        {}
func (CommitBlockRequest) isRequest()     {}

// NewGetInfo builds a GetInfoRequest and its reply channel.
func NewGetInfo() (GetInfoRequest, <-chan InfoResult) {
	ch := make(chan InfoResult, 1)
	return GetInfoRequest{Reply: ch}, ch
}

// NewInitChain builds an InitChainRequest and its reply channel.
func NewInitChain(chainID string) (InitChainRequest, <-chan error) {
	ch := make(chan error, 1)
	return InitChainRequest{ChainID: chainID, Reply: ch}, ch
}

// NewMempoolValidate builds a MempoolValidateRequest and its reply
// channel.
func NewMempoolValidate(tx []byte, kind MempoolTxKind) (MempoolValidateRequest, <-chan error) {
	ch := make(chan error, 1)
	return MempoolValidateRequest{Tx: tx, Kind: kind, Reply: ch}, ch
}

// NewBeginBlock builds a BeginBlockRequest and its reply channel.
func NewBeginBlock(hash types.BlockHash, height types.BlockHeight) (BeginBlockRequest, <-chan error) {
	ch := make(chan error, 1)
	return BeginBlockRequest{Hash: hash, Height: height, Reply: ch}, ch
}

// NewApplyTx builds an ApplyTxRequest and its reply channel.
func NewApplyTx(tx []byte) (ApplyTxRequest, <-chan ApplyTxResult) {
	ch := make(chan ApplyTxResult, 1)
	return ApplyTxRequest{Tx: tx, Reply: ch}, ch
}

// NewEndBlock builds an EndBlockRequest and its reply channel.
func NewEndBlock(height types.BlockHeight) (EndBlockRequest, <-chan error) {
	ch := make(chan error, 1)
	return EndBlockRequest{Height: height, Reply: ch}, ch
}

// NewCommitBlock builds a CommitBlockRequest and its reply channel.
func NewCommitBlock() (CommitBlockRequest, <-chan CommitBlockResult) {
	ch := make(chan CommitBlockResult, 1)
	return CommitBlockRequest{Reply: ch}, ch
}
