package anomagrpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/local"
	"github.com/isabella232/anoma/types"
)

// Compile-time interface check.
var _ ShellServiceServer = (*Bridge)(nil)

// Bridge exposes a shell's request channel as a gRPC service. It
// translates between wire types and the channel protocol; the shell
// itself stays single-threaded behind its channel.
type Bridge struct {
	client *local.Client
}

// NewBridge creates a bridge feeding the given request channel.
func NewBridge(requests chan<- anoma.Request) *Bridge {
	return &Bridge{client: local.NewClient(requests)}
}

// Register adds the shell service to a gRPC server.
func (b *Bridge) Register(gs *grpc.Server) {
	RegisterShellServiceServer(gs, b)
}

// Serve starts a gRPC server on the given listener.
func (b *Bridge) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	b.Register(gs)
	return gs.Serve(lis)
}

func (b *Bridge) GetInfo(ctx context.Context, _ *GetInfoRequest) (*GetInfoResponse, error) {
	state, err := b.client.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &GetInfoResponse{}, nil
	}
	return &GetInfoResponse{
		Found:  true,
		Root:   state.Root[:],
		Height: uint64(state.Height),
	}, nil
}

func (b *Bridge) InitChain(ctx context.Context, req *InitChainRequest) (*InitChainResponse, error) {
	if err := b.client.InitChain(ctx, req.ChainID); err != nil {
		return nil, err
	}
	return &InitChainResponse{}, nil
}

func (b *Bridge) MempoolValidate(ctx context.Context, req *MempoolValidateRequest) (*MempoolValidateResponse, error) {
	err := b.client.MempoolValidate(ctx, req.Tx, anoma.MempoolTxKind(req.Kind))
	if err == nil {
		return &MempoolValidateResponse{Accepted: true}, nil
	}
	if _, ok := anoma.IsDecoding(err); ok {
		return &MempoolValidateResponse{Log: err.Error()}, nil
	}
	return nil, err
}

func (b *Bridge) BeginBlock(ctx context.Context, req *BeginBlockRequest) (*BeginBlockResponse, error) {
	var hash types.BlockHash
	copy(hash[:], req.Hash)
	if err := b.client.BeginBlock(ctx, hash, types.BlockHeight(req.Height)); err != nil {
		return nil, err
	}
	return &BeginBlockResponse{}, nil
}

func (b *Bridge) ApplyTx(ctx context.Context, req *ApplyTxRequest) (*ApplyTxResponse, error) {
	result, err := b.client.ApplyTx(ctx, req.Tx)
	if err != nil {
		return nil, err
	}
	resp := &ApplyTxResponse{
		GasUsed:    result.GasUsed,
		Declined:   result.Declined,
		RejectedBy: result.RejectedBy,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp, nil
}

func (b *Bridge) EndBlock(ctx context.Context, req *EndBlockRequest) (*EndBlockResponse, error) {
	if err := b.client.EndBlock(ctx, types.BlockHeight(req.Height)); err != nil {
		return nil, err
	}
	return &EndBlockResponse{}, nil
}

func (b *Bridge) CommitBlock(ctx context.Context, _ *CommitBlockRequest) (*CommitBlockResponse, error) {
	result, err := b.client.CommitBlock(ctx)
	if err != nil {
		return nil, err
	}
	if result.Err != nil {
		return nil, result.Err
	}
	return &CommitBlockResponse{Root: result.Root[:]}, nil
}
