package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type userCtxKey struct{}

// UserFromContext returns the user the interceptor authenticated.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*models.User)
	return u, ok && u != nil
}

// publicMethods are served without a bearer token.
var publicMethods = map[string]bool{
	PingMethod:     true,
	RegisterMethod: true,
	LoginMethod:    true,
	RefreshMethod:  true,
}

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	user, err := s.gate.Resolve(ctx, authorizationFromMetadata(ctx))
	if err != nil {
		if isAuthError(err) {
			return nil, status.Error(codes.Unauthenticated, msgAuthFailed)
		}
		s.logger.Error(ctx, "authentication lookup failed", "method", info.FullMethod, "error", err.Error())
		return nil, status.Error(codes.Internal, msgInternal)
	}

	return handler(context.WithValue(ctx, userCtxKey{}, user), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)
	code := status.Code(err).String()

	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"code", code,
		"duration", elapsed)
	if s.observer != nil {
		s.observer.ObserveRPC(info.FullMethod, code, elapsed)
	}
	return resp, err
}
