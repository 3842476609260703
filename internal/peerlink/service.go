package peerlink

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName   = "xmppcore.peerlink.v1.PeerLink"
	deliverMethod = "/" + serviceName + "/Deliver"

	// OriginDomainKey is the call metadata key naming the sending domain
	OriginDomainKey = "x-origin-domain"
)

// deliverServer is the server side of the Deliver call
type deliverServer interface {
	Deliver(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error)
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(deliverServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deliverMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(deliverServer).Deliver(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// peerLinkServiceDesc describes the PeerLink service. The payload is a
// JSON-encoded IQ carried in a BytesValue.
var peerLinkServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*deliverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xmppcore/peerlink/v1/peerlink.proto",
}

// originFrom extracts the sending domain from incoming call metadata
func originFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(OriginDomainKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
