package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "medlogbook.Logbook"

const (
	MethodPing               = "Ping"
	MethodCreateEntry        = "CreateEntry"
	MethodEditEntry          = "EditEntry"
	MethodDeleteEntry        = "DeleteEntry"
	MethodSubmitEntry        = "SubmitEntry"
	MethodSignEntry          = "SignEntry"
	MethodRejectEntry        = "RejectEntry"
	MethodBulkSign           = "BulkSign"
	MethodGetEntry           = "GetEntry"
	MethodListOwnEntries     = "ListOwnEntries"
	MethodListForReview      = "ListForReview"
	MethodBulkSignCandidates = "BulkSignCandidates"
	MethodGetAutoReview      = "GetAutoReview"
	MethodSetAutoReview      = "SetAutoReview"
	MethodSignatureHistory   = "SignatureHistory"
	MethodSignaturesBySigner = "SignaturesBySigner"
	MethodPresignUpload      = "PresignUpload"
	MethodPresignDownload    = "PresignDownload"
)

// FullMethod returns the wire path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LogbookServer is the handler type registered with grpc.Server.
type LogbookServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// unary adapts a typed handler to grpc.MethodDesc, running the configured
// interceptor chain around it.
func unary[Req, Resp any](method string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LogbookServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, (*GRPCServer).Ping),
		unary(MethodCreateEntry, (*GRPCServer).CreateEntry),
		unary(MethodEditEntry, (*GRPCServer).EditEntry),
		unary(MethodDeleteEntry, (*GRPCServer).DeleteEntry),
		unary(MethodSubmitEntry, (*GRPCServer).SubmitEntry),
		unary(MethodSignEntry, (*GRPCServer).SignEntry),
		unary(MethodRejectEntry, (*GRPCServer).RejectEntry),
		unary(MethodBulkSign, (*GRPCServer).BulkSign),
		unary(MethodGetEntry, (*GRPCServer).GetEntry),
		unary(MethodListOwnEntries, (*GRPCServer).ListOwnEntries),
		unary(MethodListForReview, (*GRPCServer).ListForReview),
		unary(MethodBulkSignCandidates, (*GRPCServer).BulkSignCandidates),
		unary(MethodGetAutoReview, (*GRPCServer).GetAutoReview),
		unary(MethodSetAutoReview, (*GRPCServer).SetAutoReview),
		unary(MethodSignatureHistory, (*GRPCServer).SignatureHistory),
		unary(MethodSignaturesBySigner, (*GRPCServer).SignaturesBySigner),
		unary(MethodPresignUpload, (*GRPCServer).PresignUpload),
		unary(MethodPresignDownload, (*GRPCServer).PresignDownload),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medlogbook/logbook",
}
