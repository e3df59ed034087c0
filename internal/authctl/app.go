// Package authctl implements the operator command line: checking passwords
// against the policy, hashing, field encryption and token minting with the
// same components the server uses.
package authctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// App runs one authctl command.
type App struct {
	in     *bufio.Reader
	inFd   int
	out    io.Writer
	errOut io.Writer
	getenv func(string) string
}

// New returns an App reading from in. Secrets are read without echo when in
// is a terminal.
func New(in io.Reader, out, errOut io.Writer, getenv func(string) string) *App {
	fd := -1
	if f, ok := in.(interface{ Fd() uintptr }); ok {
		fd = int(f.Fd())
	}
	return &App{in: bufio.NewReader(in), inFd: fd, out: out, errOut: errOut, getenv: getenv}
}

// Run executes the command in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(a.errOut, "error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// Command builds the command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "authctl",
		Short: "Operator tools for authkeeper",
		Long: `authctl runs the authkeeper password, encryption and token components
locally.

Example usage:
  authctl check --level strict       # check a password against the policy
  authctl hash --cost 12             # print a bcrypt digest
  authctl token --sub <user id>      # sign an access token with JWT_SECRET`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return usageError{errors.New("no command given")}
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		a.checkCmd(),
		a.hashCmd(),
		a.verifyCmd(),
		a.encryptCmd(),
		a.decryptCmd(),
		a.tokenCmd(),
		a.pingCmd(),
	)
	return root
}

func (a *App) readPassword() (string, error) {
	return ReadSecret(a.inFd, a.in, "Password: ", a.errOut)
}

func (a *App) checkCmd() *cobra.Command {
	var level, denyPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a password against the policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lvl, err := password.ParseLevel(level)
			if err != nil {
				return usageError{err}
			}
			var deny []string
			if denyPath != "" {
				if deny, err = password.LoadDenyListFile(denyPath); err != nil {
					return err
				}
			}
			policy, err := password.NewPolicy(lvl, deny)
			if err != nil {
				return err
			}

			pw, err := a.readPassword()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if err := policy.Validate(pw); err != nil {
				var v *password.PolicyViolation
				if errors.As(err, &v) {
					fmt.Fprintf(w, "rejected (%s): %s\n", v.Rule, v.Error())
					return common.ErrPolicyViolation
				}
				return err
			}
			fmt.Fprintln(w, "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", string(password.LevelBasic), "policy level: basic or strict")
	cmd.Flags().StringVar(&denyPath, "deny", "", "deny list file")
	return cmd
}

func (a *App) hashCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print a bcrypt digest of a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := password.NewHasher(cost)
			if err != nil {
				return usageError{err}
			}
			pw, err := a.readPassword()
			if err != nil {
				return err
			}
			digest, err := h.Hash(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (default 10)")
	return cmd
}

func (a *App) verifyCmd() *cobra.Command {
	var digest string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a password against a bcrypt digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if digest == "" {
				return usageError{errors.New("--digest is required")}
			}
			h, err := password.NewHasher(0)
			if err != nil {
				return err
			}
			pw, err := a.readPassword()
			if err != nil {
				return err
			}
			if !h.Verify(pw, digest) {
				fmt.Fprintln(cmd.OutOrStdout(), "mismatch")
				return common.ErrorUnauthorized
			}
			fmt.Fprintln(cmd.OutOrStdout(), "match")
			return nil
		},
	}
	cmd.Flags().StringVar(&digest, "digest", "", "bcrypt digest")
	return cmd
}

func (a *App) encryptor(iterations int) (*cryptox.FieldEncryptor, error) {
	return cryptox.NewFieldEncryptor(a.getenv("ENCRYPTION_KEY"), iterations)
}

func (a *App) encryptCmd() *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt one line from stdin with ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := a.encryptor(iterations)
			if err != nil {
				return err
			}
			plaintext, err := ReadLine(a.in)
			if err != nil {
				return err
			}
			field, err := enc.Encrypt(plaintext)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
				"ciphertext": field.Ciphertext,
				"salt":       field.Salt,
			})
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "i", cryptox.MinIterations, "pbkdf2 iterations")
	return cmd
}

func (a *App) decryptCmd() *cobra.Command {
	var (
		iterations       int
		ciphertext, salt string
	)

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a ciphertext/salt pair with ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ciphertext == "" || salt == "" {
				return usageError{errors.New("--ciphertext and --salt are required")}
			}
			enc, err := a.encryptor(iterations)
			if err != nil {
				return err
			}
			plaintext, err := enc.Decrypt(cryptox.EncryptedField{Ciphertext: ciphertext, Salt: salt})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "i", cryptox.MinIterations, "pbkdf2 iterations")
	cmd.Flags().StringVar(&ciphertext, "ciphertext", "", "base64url ciphertext")
	cmd.Flags().StringVar(&salt, "salt", "", "base64url salt")
	return cmd
}

func (a *App) tokenCmd() *cobra.Command {
	var (
		sub, typ, alg string
		ttl           time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a token for a subject with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sub == "" {
				return usageError{errors.New("--sub is required")}
			}
			tokens, err := auth.NewTokenService(auth.TokenConfig{
				AccessSecret:  []byte(a.getenv("JWT_SECRET")),
				RefreshSecret: []byte(a.getenv("JWT_REFRESH_SECRET")),
				Algorithm:     alg,
			}, logging.Nop())
			if err != nil {
				return err
			}
			signed, err := tokens.Issue(sub, auth.TokenType(typ), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&typ, "type", string(auth.TokenAccess), "access or refresh")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultAccessTTL, "lifetime")
	cmd.Flags().StringVar(&alg, "alg", "HS256", "HS256, HS384 or HS512")
	return cmd
}

// dialServer is a seam for tests.
var dialServer = func(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func (a *App) pingCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Call Ping on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := dialServer(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := gs.NewAuthServiceClient(conn).Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:50051", "server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")
	return cmd
}
