// Package grpc exposes the authentication service over gRPC with a JSON
// codec.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the business logic behind the RPC handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*auth.TokenPair, error)
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Me(ctx context.Context, user *models.User) (*services.Profile, error)
	UpdateEmail(ctx context.Context, user *models.User, email *string) error
	ChangePassword(ctx context.Context, user *models.User, current, next string) error
}

// Authenticator resolves an authorization value to a user.
type Authenticator interface {
	Resolve(ctx context.Context, authorization string) (*models.User, error)
}

// RPCObserver receives the outcome of every finished call.
type RPCObserver interface {
	ObserveRPC(method, code string, d time.Duration)
}

type GRPCServer struct {
	address  string
	users    UserService
	gate     Authenticator
	logger   logging.Logger
	observer RPCObserver
}

var _ AuthServiceServer = (*GRPCServer)(nil)

type ServerOption func(*GRPCServer)

func WithRPCObserver(o RPCObserver) ServerOption {
	return func(s *GRPCServer) { s.observer = o }
}

func NewGRPCServer(a string, l logging.Logger, us UserService, gate Authenticator, opts ...ServerOption) *GRPCServer {
	s := &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		gate:    gate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	RegisterAuthServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
