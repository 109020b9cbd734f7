// Package rpc serves the glyphpack encoder over gRPC. Messages are the
// well-known wrapper types, so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "glyphpack.v1.Encoder"

	EncodeMethod = "/" + ServiceName + "/Encode"
	DecodeMethod = "/" + ServiceName + "/Decode"

	// PayloadTypeKey is the request metadata key carrying the payload type
	// label for Encode.
	PayloadTypeKey = "x-payload-type"
	// AuthorizationKey carries "Bearer <token>" when the daemon requires one.
	AuthorizationKey = "authorization"
)

// EncoderServer is the server API for the glyphpack.v1.Encoder service.
type EncoderServer interface {
	Encode(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Decode(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// ServiceDesc describes glyphpack.v1.Encoder for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EncoderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Encode", Handler: encodeHandler},
		{MethodName: "Decode", Handler: decodeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "glyphpack/v1/encoder.proto",
}

func RegisterEncoderServer(s grpc.ServiceRegistrar, srv EncoderServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func encodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EncoderServer).Encode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EncodeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EncoderServer).Encode(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func decodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EncoderServer).Decode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DecodeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EncoderServer).Decode(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
