// Package auth issues and verifies signed access/refresh tokens and resolves
// bearer credentials to identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Default lifetimes used when TokenConfig leaves them zero.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the payload of a token: sub, type, iat and exp.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// FailureReason says why Verify rejected a token. It is meant for logs and
// metrics only; callers outside the server see a single "invalid token".
type FailureReason string

const (
	ReasonMalformed    FailureReason = "malformed"
	ReasonSignature    FailureReason = "signature"
	ReasonExpired      FailureReason = "expired"
	ReasonTypeMismatch FailureReason = "type_mismatch"
	ReasonClaims       FailureReason = "claims"
)

// InvalidTokenError is returned by Verify for every rejection. Error() is the
// same for all reasons.
type InvalidTokenError struct {
	Reason FailureReason
	err    error
}

func (e *InvalidTokenError) Error() string { return common.ErrInvalidToken.Error() }

func (e *InvalidTokenError) Unwrap() error { return e.err }

// Is makes errors.Is(err, common.ErrInvalidToken) match.
func (e *InvalidTokenError) Is(target error) bool { return target == common.ErrInvalidToken }

// TokenConfig configures a TokenService. AccessSecret is required;
// RefreshSecret falls back to AccessSecret; Algorithm is HS256, HS384 or
// HS512 (HS256 when empty).
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Algorithm     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService signs and verifies tokens. It is immutable and safe for
// concurrent use.
type TokenService struct {
	method  *jwt.SigningMethodHMAC
	secrets map[TokenType][]byte
	ttls    map[TokenType]time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// NewTokenService validates cfg and builds a TokenService.
func NewTokenService(cfg TokenConfig, l logging.Logger) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("%w: token signing secret is not set", common.ErrConfigurationMissing)
	}
	refreshSecret := cfg.RefreshSecret
	if len(refreshSecret) == 0 {
		refreshSecret = cfg.AccessSecret
	}

	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	accessTTL, refreshTTL := cfg.AccessTTL, cfg.RefreshTTL
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if accessTTL < 0 || refreshTTL < 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &TokenService{
		method:  method,
		secrets: map[TokenType][]byte{TokenAccess: cfg.AccessSecret, TokenRefresh: refreshSecret},
		ttls:    map[TokenType]time.Duration{TokenAccess: accessTTL, TokenRefresh: refreshTTL},
		logger:  l.With("module", "tokens"),
		now:     time.Now,
	}, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case "", jwt.SigningMethodHS256.Alg():
		return jwt.SigningMethodHS256, nil
	case jwt.SigningMethodHS384.Alg():
		return jwt.SigningMethodHS384, nil
	case jwt.SigningMethodHS512.Alg():
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

// TTL returns the configured lifetime for typ.
func (s *TokenService) TTL(typ TokenType) time.Duration {
	return s.ttls[typ]
}

// Issue signs a token of typ for subject that expires ttl from now.
// A non-positive ttl produces an already expired token.
func (s *TokenService) Issue(subject string, typ TokenType, ttl time.Duration) (string, error) {
	secret, ok := s.secrets[typ]
	if !ok {
		return "", fmt.Errorf("unknown token type %q", typ)
	}
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := s.now()
	token := jwt.NewWithClaims(s.method, Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// IssuePair issues an access and a refresh token for subject with the
// configured lifetimes.
func (s *TokenService) IssuePair(subject string) (*TokenPair, error) {
	access, err := s.Issue(subject, TokenAccess, s.ttls[TokenAccess])
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(subject, TokenRefresh, s.ttls[TokenRefresh])
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, expiry and that the token's type equals expected.
// The secret is chosen by expected, so a token signed for the other type
// fails as a bad signature when secrets differ and as a type mismatch when
// they are shared. Every failure is an *InvalidTokenError.
func (s *TokenService) Verify(tokenString string, expected TokenType) (*Claims, error) {
	secret, ok := s.secrets[expected]
	if !ok {
		return nil, fmt.Errorf("unknown token type %q", expected)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, s.reject(classify(err), err)
	}

	if claims.Type != expected {
		return nil, s.reject(ReasonTypeMismatch, fmt.Errorf("token type %q, expected %q", claims.Type, expected))
	}
	if claims.Subject == "" {
		return nil, s.reject(ReasonClaims, errors.New("token has no subject"))
	}

	return claims, nil
}

func classify(err error) FailureReason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}

func (s *TokenService) reject(reason FailureReason, cause error) error {
	s.logger.Warn(context.Background(), "token rejected", "reason", string(reason), "cause", cause.Error())
	return &InvalidTokenError{Reason: reason, err: cause}
}
