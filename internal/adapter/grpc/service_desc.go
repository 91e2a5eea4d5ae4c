package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "quoteflow.v1.PricingService"

// Method names of the pricing service
const (
	MethodComputeCost  = "ComputeCost"
	MethodPriceQuote   = "PriceQuote"
	MethodRecordPrice  = "RecordPrice"
	MethodCurrentPrice = "CurrentPrice"
)

// PricingServer is implemented by the transport adapter.
// Requests and responses are google.protobuf.Struct documents.
type PricingServer interface {
	ComputeCost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PriceQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RecordPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CurrentPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv PricingServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryMethod builds a MethodDesc that decodes a Struct and runs it through the interceptor chain
func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PricingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(PricingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PricingServiceDesc describes the pricing service to grpc.Server
var PricingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodComputeCost, PricingServer.ComputeCost),
		unaryMethod(MethodPriceQuote, PricingServer.PriceQuote),
		unaryMethod(MethodRecordPrice, PricingServer.RecordPrice),
		unaryMethod(MethodCurrentPrice, PricingServer.CurrentPrice),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quoteflow/v1/pricing.proto",
}

// RegisterPricingServer registers srv on a gRPC server
func RegisterPricingServer(s grpc.ServiceRegistrar, srv PricingServer) {
	s.RegisterService(&PricingServiceDesc, srv)
}

// FullMethod returns "/quoteflow.v1.PricingService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// PricingClient calls the pricing service over a client connection
type PricingClient struct {
	cc grpc.ClientConnInterface
}

// NewPricingClient creates a new PricingClient
func NewPricingClient(cc grpc.ClientConnInterface) *PricingClient {
	return &PricingClient{cc: cc}
}

// Call invokes one unary method
func (c *PricingClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
