package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

// UserLookup finds a user by id. It must return common.ErrorNotFound when
// no such user exists.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RejectionRecorder counts rejected authentications by kind.
type RejectionRecorder interface {
	AuthRejected(kind string)
}

// Rejection kinds reported to logs and the RejectionRecorder.
const (
	KindUnauthenticated = "unauthenticated"
	KindInvalidToken    = "invalid_token"
	KindUnknownSubject  = "unknown_subject"
)

// Gate turns an authorization value into an authenticated user.
type Gate struct {
	tokens   *TokenService
	users    UserLookup
	logger   logging.Logger
	recorder RejectionRecorder
}

type GateOption func(*Gate)

// WithRejectionRecorder reports every rejection to r.
func WithRejectionRecorder(r RejectionRecorder) GateOption {
	return func(g *Gate) { g.recorder = r }
}

func NewGate(tokens *TokenService, users UserLookup, l logging.Logger, opts ...GateOption) *Gate {
	g := &Gate{tokens: tokens, users: users, logger: l.With("module", "gate")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) reject(ctx context.Context, kind string, args ...any) {
	if g.recorder != nil {
		g.recorder.AuthRejected(kind)
	}
	g.logger.Info(ctx, "authentication rejected", append([]any{"kind", kind}, args...)...)
}

// Resolve authenticates an "Bearer <token>" value.
//
// It returns common.ErrUnauthenticated when no bearer credential is present,
// common.ErrInvalidToken when the token fails verification or its subject is
// not a UUID, and common.ErrUnknownSubject when the subject no longer exists.
func (g *Gate) Resolve(ctx context.Context, authorization string) (*models.User, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		g.reject(ctx, KindUnauthenticated)
		return nil, common.ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(token, TokenAccess)
	if err != nil {
		g.reject(ctx, KindInvalidToken)
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		g.reject(ctx, KindInvalidToken, "reason", "subject is not a uuid")
		return nil, &InvalidTokenError{Reason: ReasonClaims, err: err}
	}

	user, err := g.users.GetUserByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.reject(ctx, KindUnknownSubject, "user_id", id.String())
			return nil, common.ErrUnknownSubject
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	return user, nil
}

func bearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
