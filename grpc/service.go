package anomagrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const serviceName = "anoma.v1.ShellService"

// ShellServiceServer is the server-side interface for the shell gRPC
// service.
type ShellServiceServer interface {
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	InitChain(context.Context, *InitChainRequest) (*InitChainResponse, error)
	MempoolValidate(context.Context, *MempoolValidateRequest) (*MempoolValidateResponse, error)
	BeginBlock(context.Context, *BeginBlockRequest) (*BeginBlockResponse, error)
	ApplyTx(context.Context, *ApplyTxRequest) (*ApplyTxResponse, error)
	EndBlock(context.Context, *EndBlockRequest) (*EndBlockResponse, error)
	CommitBlock(context.Context, *CommitBlockRequest) (*CommitBlockResponse, error)
}

// RegisterShellServiceServer registers the ShellServiceServer on a
// gRPC server.
func RegisterShellServiceServer(s *grpc.Server, srv ShellServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func handlerGetInfo(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetInfoRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).GetInfo(ctx, req)
}

func handlerInitChain(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(InitChainRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).InitChain(ctx, req)
}

func handlerMempoolValidate(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(MempoolValidateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).MempoolValidate(ctx, req)
}

func handlerBeginBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(BeginBlockRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).BeginBlock(ctx, req)
}

func handlerApplyTx(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(ApplyTxRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).ApplyTx(ctx, req)
}

func handlerEndBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(EndBlockRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).EndBlock(ctx, req)
}

func handlerCommitBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(CommitBlockRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ShellServiceServer).CommitBlock(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for the shell.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ShellServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetInfo", Handler: handlerGetInfo},
		{MethodName: "InitChain", Handler: handlerInitChain},
		{MethodName: "MempoolValidate", Handler: handlerMempoolValidate},
		{MethodName: "BeginBlock", Handler: handlerBeginBlock},
		{MethodName: "ApplyTx", Handler: handlerApplyTx},
		{MethodName: "EndBlock", Handler: handlerEndBlock},
		{MethodName: "CommitBlock", Handler: handlerCommitBlock},
	},
	Metadata: "anoma/v1/shell.cram",
}
