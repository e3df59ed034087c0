package authctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type result struct {
	code   int
	out    string
	errOut string
}

func run(t *testing.T, stdin string, env map[string]string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	app := New(strings.NewReader(stdin), &out, &errOut, func(k string) string { return env[k] })
	code := app.Run(context.Background(), args)
	return result{code: code, out: out.String(), errOut: errOut.String()}
}

func TestRun_Usage(t *testing.T) {
	r := run(t, "", nil)
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.out+r.errOut, "Usage:")
	assert.Contains(t, r.errOut, "no command given")

	r = run(t, "", nil, "frobnicate")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.errOut, `unknown command "frobnicate"`)

	r = run(t, "", nil, "hash", "--cost", "ten")
	assert.Equal(t, 2, r.code)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		password string
		code     int
		out      string
	}{
		{"basic ok", nil, "correcthorse1", 0, "ok\n"},
		{"too short", nil, "ab1", 1, "rejected (min_length)"},
		{"common", nil, "12345678", 1, "rejected (common_password)"},
		{"strict needs symbol", []string{"--level", "strict"}, "Correcthorse1", 1, "rejected (symbol)"},
		{"strict ok", []string{"-l", "strict"}, "Correct-horse1", 0, "ok\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.password+"\n", nil, append([]string{"check"}, tt.args...)...)
			assert.Equal(t, tt.code, r.code, r.errOut)
			assert.Contains(t, r.out, tt.out)
		})
	}
}

func TestCheck_BadLevel(t *testing.T) {
	r := run(t, "whatever1\n", nil, "check", "--level", "paranoid")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.errOut, "unknown password policy level")
}

func TestHashVerify(t *testing.T) {
	r := run(t, "correcthorse1\n", nil, "hash", "--cost", "4")
	require.Equal(t, 0, r.code, r.errOut)
	digest := strings.TrimSpace(r.out)
	assert.True(t, strings.HasPrefix(digest, "$2a$04$"), digest)

	r = run(t, "correcthorse1\n", nil, "verify", "--digest", digest)
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "match\n", r.out)

	r = run(t, "wronghorse1\n", nil, "verify", "--digest", digest)
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "mismatch\n", r.out)
}

func TestHash_Empty(t *testing.T) {
	r := run(t, "\n", nil, "hash", "--cost", "4")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.errOut, password.ErrEmptyPassword.Error())
}

func TestVerify_MissingDigest(t *testing.T) {
	r := run(t, "x\n", nil, "verify")
	assert.Equal(t, 2, r.code)
}

func TestEncryptDecrypt(t *testing.T) {
	env := map[string]string{"ENCRYPTION_KEY": "cli-master-key"}

	r := run(t, "alice@example.com\n", env, "encrypt")
	require.Equal(t, 0, r.code, r.errOut)

	var field map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.out), &field))
	require.NotEmpty(t, field["ciphertext"])
	require.NotEmpty(t, field["salt"])

	r = run(t, "", env, "decrypt", "--ciphertext", field["ciphertext"], "--salt", field["salt"])
	require.Equal(t, 0, r.code, r.errOut)
	assert.Equal(t, "alice@example.com\n", r.out)

	r = run(t, "", map[string]string{"ENCRYPTION_KEY": "other-key"}, "decrypt", "--ciphertext", field["ciphertext"], "--salt", field["salt"])
	assert.Equal(t, 1, r.code)
}

func TestEncrypt_MissingKey(t *testing.T) {
	r := run(t, "alice@example.com\n", nil, "encrypt")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.errOut, "encryption master key is not set")
}

func TestDecrypt_MissingFlags(t *testing.T) {
	r := run(t, "", map[string]string{"ENCRYPTION_KEY": "k"}, "decrypt", "--salt", "abc")
	assert.Equal(t, 2, r.code)
}

func TestToken(t *testing.T) {
	env := map[string]string{"JWT_SECRET": "cli-secret"}
	sub := "6f1c1f5e-8c1b-4a43-9a59-6d0a1d6f6b2e"

	r := run(t, "", env, "token", "--sub", sub, "--ttl", "1m")
	require.Equal(t, 0, r.code, r.errOut)

	tokens, err := auth.NewTokenService(auth.TokenConfig{AccessSecret: []byte("cli-secret")}, logging.Nop())
	require.NoError(t, err)
	claims, err := tokens.Verify(strings.TrimSpace(r.out), auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, sub, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestToken_Errors(t *testing.T) {
	r := run(t, "", map[string]string{"JWT_SECRET": "s"}, "token")
	assert.Equal(t, 2, r.code)

	r = run(t, "", nil, "token", "--sub", "x")
	assert.Equal(t, 1, r.code)

	r = run(t, "", map[string]string{"JWT_SECRET": "s"}, "token", "--sub", "x", "--alg", "RS256")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.errOut, "unsupported signing algorithm")
}

func TestPing(t *testing.T) {
	srv := gs.NewGRPCServer("bufnet", logging.Nop(), nil, nil)
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	old := dialServer
	dialServer = func(string) (*grpc.ClientConn, error) {
		return grpc.NewClient("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}
	t.Cleanup(func() { dialServer = old })

	r := run(t, "", nil, "ping", "-a", "bufnet")
	assert.Equal(t, 0, r.code, r.errOut)
	assert.Equal(t, "OK\n", r.out)
}

func TestEncryptedFieldShape(t *testing.T) {
	enc, err := cryptox.NewFieldEncryptor("cli-master-key", 0)
	require.NoError(t, err)
	f, err := enc.Encrypt("x")
	require.NoError(t, err)

	r := run(t, "", map[string]string{"ENCRYPTION_KEY": "cli-master-key"}, "decrypt", "--ciphertext", f.Ciphertext, "--salt", f.Salt)
	assert.Equal(t, 0, r.code, r.errOut)
	assert.Equal(t, "x\n", r.out)
}
