package control

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "clipsync.v1.Control"

// ControlServer is the server API of clipsync.v1.Control.
type ControlServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Share(context.Context, *ShareRequest) (*ShareResponse, error)
	SetPeers(context.Context, *SetPeersRequest) (*SetPeersResponse, error)
	SetAutoCopy(context.Context, *SetAutoCopyRequest) (*SetAutoCopyResponse, error)
	Latest(context.Context, *LatestRequest) (*LatestResponse, error)
	Watch(*WatchRequest, grpc.ServerStream) error
}

// ServiceDesc describes clipsync.v1.Control for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", ControlServer.Status),
		unary("Share", ControlServer.Share),
		unary("SetPeers", ControlServer.SetPeers),
		unary("SetAutoCopy", ControlServer.SetAutoCopy),
		unary("Latest", ControlServer.Latest),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Watch",
		Handler:       watchHandler,
		ServerStreams: true,
	}},
	Metadata: "clipsync/v1/control",
}

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// unary builds the MethodDesc of a unary RPC from its ControlServer method.
func unary[Req, Resp any](name string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Watch(in, stream)
}
