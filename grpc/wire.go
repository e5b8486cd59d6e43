package anomagrpc

import "github.com/isabella232/anoma/types"

// Wire types for the shell RPCs. Application-level verdicts (a
// declined transaction, a rejected mempool check) travel in the
// response body; gRPC status errors are reserved for transport and
// protocol failures.

// GetInfoRequest is the (empty) request for ShellService.GetInfo.
type GetInfoRequest struct{}

// GetInfoResponse carries the last committed block state. Found is
// false when no block has been committed yet.
type GetInfoResponse struct {
	Found  bool   `cramberry:"1"`
	Root   []byte `cramberry:"2"`
	Height uint64 `cramberry:"3"`
}

// InitChainRequest wraps the chain identifier.
type InitChainRequest struct {
	ChainID string `cramberry:"1"`
}

// InitChainResponse is the (empty) response for ShellService.InitChain.
type InitChainResponse struct{}

// MempoolValidateRequest wraps a raw transaction and whether it is
// first-seen or a recheck.
type MempoolValidateRequest struct {
	Tx   []byte `cramberry:"1"`
	Kind uint32 `cramberry:"2"`
}

// MempoolValidateResponse carries the admission verdict. Log holds
// the rejection reason when Accepted is false.
type MempoolValidateResponse struct {
	Accepted bool   `cramberry:"1"`
	Log      string `cramberry:"2"`
}

// BeginBlockRequest wraps the block header fields the shell needs.
type BeginBlockRequest struct {
	Hash   []byte `cramberry:"1"`
	Height uint64 `cramberry:"2"`
}

// BeginBlockResponse is the (empty) response for ShellService.BeginBlock.
type BeginBlockResponse struct{}

// ApplyTxRequest wraps one raw transaction.
type ApplyTxRequest struct {
	Tx []byte `cramberry:"1"`
}

// ApplyTxResponse carries the transaction outcome. Error holds the
// failure reason when the transaction failed before reaching a
// verdict; Declined and RejectedBy describe a predicate rejection.
type ApplyTxResponse struct {
	GasUsed    uint64          `cramberry:"1"`
	Declined   bool            `cramberry:"2"`
	RejectedBy []types.Address `cramberry:"3"`
	Error      string          `cramberry:"4"`
}

// EndBlockRequest wraps the height of the block being closed.
type EndBlockRequest struct {
	Height uint64 `cramberry:"1"`
}

// EndBlockResponse is the (empty) response for ShellService.EndBlock.
type EndBlockResponse struct{}

// CommitBlockRequest is the (empty) request for ShellService.CommitBlock.
type CommitBlockRequest struct{}

// CommitBlockResponse carries the Merkle root after the commit.
type CommitBlockResponse struct {
	Root []byte `cramberry:"1"`
}
