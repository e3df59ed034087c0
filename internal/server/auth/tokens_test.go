package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "5f2b3c1e-8a1d-4b0f-9f6e-2a7c9d3e1b40"

func newTestService(t *testing.T, cfg TokenConfig) *TokenService {
	t.Helper()
	if cfg.AccessSecret == nil {
		cfg.AccessSecret = []byte("access-secret-for-tests")
	}
	s, err := NewTokenService(cfg, logging.Nop())
	require.NoError(t, err)
	return s
}

func requireReason(t *testing.T, err error, want FailureReason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
	assert.Equal(t, "invalid token", err.Error())

	var ite *InvalidTokenError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, want, ite.Reason)
}

func TestNewTokenService_Config(t *testing.T) {
	_, err := NewTokenService(TokenConfig{}, logging.Nop())
	assert.ErrorIs(t, err, common.ErrConfigurationMissing)

	_, err = NewTokenService(TokenConfig{AccessSecret: []byte("x"), Algorithm: "RS256"}, logging.Nop())
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{AccessSecret: []byte("x"), AccessTTL: -time.Second}, logging.Nop())
	assert.Error(t, err)

	s := newTestService(t, TokenConfig{})
	assert.Equal(t, DefaultAccessTTL, s.TTL(TokenAccess))
	assert.Equal(t, DefaultRefreshTTL, s.TTL(TokenRefresh))
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	for _, alg := range []string{"", "HS256", "HS384", "HS512"} {
		t.Run("alg="+alg, func(t *testing.T) {
			s := newTestService(t, TokenConfig{Algorithm: alg})

			tok, err := s.Issue(testSubject, TokenAccess, time.Minute)
			require.NoError(t, err)

			claims, err := s.Verify(tok, TokenAccess)
			require.NoError(t, err)
			assert.Equal(t, testSubject, claims.Subject)
			assert.Equal(t, TokenAccess, claims.Type)
			require.NotNil(t, claims.ExpiresAt)
			assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestIssue_Errors(t *testing.T) {
	s := newTestService(t, TokenConfig{})

	_, err := s.Issue("", TokenAccess, time.Minute)
	assert.Error(t, err)

	_, err = s.Issue(testSubject, TokenType("id"), time.Minute)
	assert.Error(t, err)
}

func TestIssuePair(t *testing.T) {
	s := newTestService(t, TokenConfig{RefreshSecret: []byte("refresh-secret-for-tests")})

	pair, err := s.IssuePair(testSubject)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	a, err := s.Verify(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, testSubject, a.Subject)

	r, err := s.Verify(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, testSubject, r.Subject)
	assert.True(t, r.ExpiresAt.After(a.ExpiresAt.Time))
}

func TestVerify_TypeConfusion(t *testing.T) {
	t.Run("shared secret", func(t *testing.T) {
		s := newTestService(t, TokenConfig{})
		pair, err := s.IssuePair(testSubject)
		require.NoError(t, err)

		_, err = s.Verify(pair.RefreshToken, TokenAccess)
		requireReason(t, err, ReasonTypeMismatch)

		_, err = s.Verify(pair.AccessToken, TokenRefresh)
		requireReason(t, err, ReasonTypeMismatch)
	})

	t.Run("split secrets", func(t *testing.T) {
		s := newTestService(t, TokenConfig{RefreshSecret: []byte("refresh-secret-for-tests")})
		pair, err := s.IssuePair(testSubject)
		require.NoError(t, err)

		_, err = s.Verify(pair.RefreshToken, TokenAccess)
		requireReason(t, err, ReasonSignature)
	})
}

func TestVerify_Expired(t *testing.T) {
	s := newTestService(t, TokenConfig{})

	tok, err := s.Issue(testSubject, TokenAccess, -time.Second)
	require.NoError(t, err)

	_, err = s.Verify(tok, TokenAccess)
	requireReason(t, err, ReasonExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestService(t, TokenConfig{AccessSecret: []byte("one")})
	verifier := newTestService(t, TokenConfig{AccessSecret: []byte("two")})

	tok, err := issuer.Issue(testSubject, TokenAccess, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(tok, TokenAccess)
	requireReason(t, err, ReasonSignature)
}

func TestVerify_AlgorithmPinned(t *testing.T) {
	s256 := newTestService(t, TokenConfig{Algorithm: "HS256"})
	s512 := newTestService(t, TokenConfig{Algorithm: "HS512"})

	tok, err := s512.Issue(testSubject, TokenAccess, time.Minute)
	require.NoError(t, err)

	_, err = s256.Verify(tok, TokenAccess)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s256.Verify(unsigned, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	s := newTestService(t, TokenConfig{})

	for _, tok := range []string{"", "abc", "a.b.c", "not-a-token.at.all"} {
		_, err := s.Verify(tok, TokenAccess)
		requireReason(t, err, ReasonMalformed)
	}
}

func TestVerify_MissingClaims(t *testing.T) {
	s := newTestService(t, TokenConfig{})
	secret := []byte("access-secret-for-tests")

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: testSubject},
	})
	tok, err := noExp.SignedString(secret)
	require.NoError(t, err)
	_, err = s.Verify(tok, TokenAccess)
	requireReason(t, err, ReasonClaims)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	tok, err = noSub.SignedString(secret)
	require.NoError(t, err)
	_, err = s.Verify(tok, TokenAccess)
	requireReason(t, err, ReasonClaims)
}
