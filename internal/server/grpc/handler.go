package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	msgAuthFailed         = "authentication failed"
	msgInvalidCredentials = "invalid credentials"
	msgInternal           = "internal error"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	pair, err := s.users.Register(ctx, services.RegisterInput{
		Username:          req.Username,
		Password:          req.Password,
		PasswordConfirm:   req.PasswordConfirm,
		Email:             req.Email,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}
	return tokenResponse(pair), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	pair, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return tokenResponse(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	pair, err := s.users.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh", err)
	}
	return tokenResponse(pair), nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *emptypb.Empty) (*ProfileResponse, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgAuthFailed)
	}

	p, err := s.users.Me(ctx, user)
	if err != nil {
		return nil, s.toStatus(ctx, "me", err)
	}

	return &ProfileResponse{
		ID:                p.ID,
		Username:          p.Username,
		Email:             p.Email,
		PreferredLanguage: p.PreferredLanguage,
		CreatedAt:         p.CreatedAt,
	}, nil
}

func (s *GRPCServer) UpdateEmail(ctx context.Context, req *UpdateEmailRequest) (*emptypb.Empty, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgAuthFailed)
	}

	if err := s.users.UpdateEmail(ctx, user, req.Email); err != nil {
		return nil, s.toStatus(ctx, "update_email", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*emptypb.Empty, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgAuthFailed)
	}

	if err := s.users.ChangePassword(ctx, user, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, "change_password", err)
	}
	return &emptypb.Empty{}, nil
}

func tokenResponse(p *auth.TokenPair) *TokenResponse {
	return &TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: common.BearerScheme}
}

// toStatus converts a service error into the status the caller sees. Only
// validation messages are passed through; everything unexpected is logged
// and hidden behind "internal error".
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	var (
		violation  *password.PolicyViolation
		validation *services.ValidationError
	)

	switch {
	case errors.As(err, &violation):
		return status.Error(codes.InvalidArgument, violation.Error())
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, validation.Message)
	case errors.Is(err, password.ErrPasswordTooLong), errors.Is(err, password.ErrEmptyPassword):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "username already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, msgInvalidCredentials)
	case isAuthError(err):
		return status.Error(codes.Unauthenticated, msgAuthFailed)
	default:
		s.logger.Error(ctx, "request failed", "op", op, "error", err.Error())
		return status.Error(codes.Internal, msgInternal)
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, common.ErrUnauthenticated) ||
		errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrUnknownSubject)
}
