package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/common"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// versionExempt lists what may be called without a matching client version:
// the handshake itself and the node-to-node services.
func versionExempt(fullMethod string) bool {
	return fullMethod == pb.ChatService_CheckVersion_FullMethodName ||
		strings.HasPrefix(fullMethod, "/"+pb.ReplicationServiceName+"/") ||
		strings.HasPrefix(fullMethod, "/"+pb.HealthServiceName+"/")
}

func checkVersion(ctx context.Context) error {
	var version string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.VersionHeaderName); len(values) > 0 {
			version = values[0]
		}
	}
	if version != common.ProtocolVersion {
		return status.Errorf(codes.FailedPrecondition, "%s: client %q, server %q",
			common.ErrVersionMismatch, version, common.ProtocolVersion)
	}
	return nil
}

func (s *GRPCServer) versionUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !versionExempt(info.FullMethod) {
		if err := checkVersion(ctx); err != nil {
			s.logger.Warn(ctx, "Refused call", "method", info.FullMethod, "error", err)
			return nil, err
		}
	}
	return handler(ctx, req)
}

func (s *GRPCServer) versionStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if !versionExempt(info.FullMethod) {
		if err := checkVersion(ss.Context()); err != nil {
			s.logger.Warn(ss.Context(), "Refused stream", "method", info.FullMethod, "error", err)
			return err
		}
	}
	return handler(srv, ss)
}
