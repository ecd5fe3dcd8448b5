package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "bookreplay.v1.Analytics"

// AnalyticsServer is the server API of bookreplay.v1.Analytics. Requests
// and responses are google.protobuf.Struct messages.
type AnalyticsServer interface {
	ListPairs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBars(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AnalyticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPairs", Handler: unary("ListPairs", AnalyticsServer.ListPairs)},
		{MethodName: "GetBars", Handler: unary("GetBars", AnalyticsServer.GetBars)},
		{MethodName: "GetEvents", Handler: unary("GetEvents", AnalyticsServer.GetEvents)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookreplay/v1/analytics.proto",
}

type method func(AnalyticsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m method) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(AnalyticsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(AnalyticsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
