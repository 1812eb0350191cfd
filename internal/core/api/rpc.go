package api

import (
	"context"

	"google.golang.org/grpc"
)

// CompileMethod is the full gRPC method name of Compile.
const CompileMethod = "/ensuregen.v1.Compiler/Compile"

// CompilerServer is the server API of the compile service.
type CompilerServer interface {
	Compile(context.Context, *CompileRequest) (*CompileResponse, error)
}

// CompilerServiceDesc describes the compile service for grpc.Server.
// Messages are plain Go structs carried by Codec.
var CompilerServiceDesc = grpc.ServiceDesc{
	ServiceName: "ensuregen.v1.Compiler",
	HandlerType: (*CompilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compile", Handler: compileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ensuregen/v1/compiler",
}

// RegisterCompilerServer registers srv on s.
func RegisterCompilerServer(s grpc.ServiceRegistrar, srv CompilerServer) {
	s.RegisterService(&CompilerServiceDesc, srv)
}

func compileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CompileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompilerServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CompileMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompilerServer).Compile(ctx, req.(*CompileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// CompilerClient calls a remote compile service.
type CompilerClient struct {
	cc grpc.ClientConnInterface
}

// NewCompilerClient wraps an established connection.
func NewCompilerClient(cc grpc.ClientConnInterface) *CompilerClient {
	return &CompilerClient{cc: cc}
}

// Compile sends req using the JSON codec.
func (c *CompilerClient) Compile(ctx context.Context, req *CompileRequest, opts ...grpc.CallOption) (*CompileResponse, error) {
	out := new(CompileResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, CompileMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
