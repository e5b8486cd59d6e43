// Package local provides a zero-copy, in-process connection to the
// shell.
//
// For consensus engines compiled into the same binary as the
// application, this adapter turns the channel-based request protocol
// into plain method calls, with no serialization overhead.
package local

import (
	"context"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/types"
)

// Client sends requests on the shell's request channel and waits for
// the reply. All methods honor context cancellation on both the send
// and the receive; a cancelled request may still be processed by the
// shell, but its reply channel is buffered, so the shell never blocks
// on an abandoned reply.
type Client struct {
	requests chan<- anoma.Request
}

// NewClient creates an in-process client feeding the given request
// channel.
func NewClient(requests chan<- anoma.Request) *Client {
	return &Client{requests: requests}
}

func send[T any](ctx context.Context, requests chan<- anoma.Request, req anoma.Request, replies <-chan T) (T, error) {
	var zero T
	select {
	case requests <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case result := <-replies:
		return result, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// GetInfo returns the last committed block state, or nil when no
// block has been committed yet.
func (c *Client) GetInfo(ctx context.Context) (*types.BlockState, error) {
	req, replies := anoma.NewGetInfo()
	result, err := send(ctx, c.requests, req, replies)
	if err != nil {
		return nil, err
	}
	return result.State, nil
}

// InitChain records the chain identifier.
func (c *Client) InitChain(ctx context.Context, chainID string) error {
	req, replies := anoma.NewInitChain(chainID)
	result, err := send(ctx, c.requests, req, replies)
	if err != nil {
		return err
	}
	return result
}

// MempoolValidate runs the cheap admission check on a transaction.
func (c *Client) MempoolValidate(ctx context.Context, tx []byte, kind anoma.MempoolTxKind) error {
	req, replies := anoma.NewMempoolValidate(tx, kind)
	result, err := send(ctx, c.requests, req, replies)
	if err != nil {
		return err
	}
	return result
}

// BeginBlock opens a block at the given height.
func (c *Client) BeginBlock(ctx context.Context, hash types.BlockHash, height types.BlockHeight) error {
	req, replies := anoma.NewBeginBlock(hash, height)
	result, err := send(ctx, c.requests, req, replies)
	if err != nil {
		return err
	}
	return result
}

// ApplyTx executes one transaction within the open block.
func (c *Client) ApplyTx(ctx context.Context, tx []byte) (anoma.ApplyTxResult, error) {
	req, replies := anoma.NewApplyTx(tx)
	return send(ctx, c.requests, req, replies)
}

// EndBlock signals that the last transaction of the block has been
// applied.
func (c *Client) EndBlock(ctx context.Context, height types.BlockHeight) error {
	req, replies := anoma.NewEndBlock(height)
	result, err := send(ctx, c.requests, req, replies)
	if err != nil {
		return err
	}
	return result
}

// CommitBlock flushes the block write log to storage and returns the
// new Merkle root.
func (c *Client) CommitBlock(ctx context.Context) (anoma.CommitBlockResult, error) {
	req, replies := anoma.NewCommitBlock()
	return send(ctx, c.requests, req, replies)
}
