package anomagrpc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/types"
)

// Client is the consensus-engine side of the shell gRPC service. Its
// methods mirror the in-process client, so an engine can swap
// transports without code changes. Typed errors do not survive the
// wire; application failures come back as flat strings.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote shell.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial shell at %s", addr)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) GetInfo(ctx context.Context) (*types.BlockState, error) {
	resp := new(GetInfoResponse)
	if err := c.cc.Invoke(ctx, fullMethod("GetInfo"), &GetInfoRequest{}, resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	state := &types.BlockState{Height: types.BlockHeight(resp.Height)}
	copy(state.Root[:], resp.Root)
	return state, nil
}

func (c *Client) InitChain(ctx context.Context, chainID string) error {
	resp := new(InitChainResponse)
	return c.cc.Invoke(ctx, fullMethod("InitChain"), &InitChainRequest{ChainID: chainID}, resp)
}

func (c *Client) MempoolValidate(ctx context.Context, tx []byte, kind anoma.MempoolTxKind) error {
	req := &MempoolValidateRequest{Tx: tx, Kind: uint32(kind)}
	resp := new(MempoolValidateResponse)
	if err := c.cc.Invoke(ctx, fullMethod("MempoolValidate"), req, resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return &anoma.DecodingError{Err: errors.New(resp.Log)}
	}
	return nil
}

func (c *Client) BeginBlock(ctx context.Context, hash types.BlockHash, height types.BlockHeight) error {
	req := &BeginBlockRequest{Hash: hash[:], Height: uint64(height)}
	resp := new(BeginBlockResponse)
	return c.cc.Invoke(ctx, fullMethod("BeginBlock"), req, resp)
}

func (c *Client) ApplyTx(ctx context.Context, tx []byte) (anoma.ApplyTxResult, error) {
	resp := new(ApplyTxResponse)
	if err := c.cc.Invoke(ctx, fullMethod("ApplyTx"), &ApplyTxRequest{Tx: tx}, resp); err != nil {
		return anoma.ApplyTxResult{}, err
	}
	result := anoma.ApplyTxResult{
		GasUsed:    resp.GasUsed,
		Declined:   resp.Declined,
		RejectedBy: resp.RejectedBy,
	}
	if resp.Error != "" {
		result.Err = errors.New(resp.Error)
	}
	return result, nil
}

func (c *Client) EndBlock(ctx context.Context, height types.BlockHeight) error {
	resp := new(EndBlockResponse)
	return c.cc.Invoke(ctx, fullMethod("EndBlock"), &EndBlockRequest{Height: uint64(height)}, resp)
}

func (c *Client) CommitBlock(ctx context.Context) (anoma.CommitBlockResult, error) {
	resp := new(CommitBlockResponse)
	if err := c.cc.Invoke(ctx, fullMethod("CommitBlock"), &CommitBlockRequest{}, resp); err != nil {
		return anoma.CommitBlockResult{}, err
	}
	var result anoma.CommitBlockResult
	copy(result.Root[:], resp.Root)
	return result, nil
}
