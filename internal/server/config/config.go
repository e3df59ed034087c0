// Package config builds the server configuration from defaults, an optional
// JSON file, the environment and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the authkeeper server.
//
// Secrets (AccessTokenSecret, RefreshTokenSecret, EncryptionKey,
// S3RootPassword) have no defaults and must come from the environment, a
// config file or flags. An empty DatabaseDSN selects the in-memory user store
// and an empty MetricsAddr disables the metrics endpoint.
// When S3Bucket and DenyListS3Key are set the password deny list is read from
// object storage; otherwise from DenyListURL or DenyListPath, if given.
type Config struct {
	EndpointAddrGRPC string
	MetricsAddr      string
	DatabaseDSN      string

	AccessTokenSecret  string
	RefreshTokenSecret string
	SigningAlgorithm   string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	EncryptionKey string
	KDFIterations int
	BcryptCost    int

	PasswordPolicyLevel string
	DenyListPath        string
	DenyListURL         string
	DenyListS3Key       string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	LogLevel string
}

// LoadDefaults populates Config with non-secret defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SigningAlgorithm = "HS256"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 7 * 24 * time.Hour
	c.KDFIterations = cryptox.MinIterations
	c.BcryptCost = bcrypt.DefaultCost
	c.PasswordPolicyLevel = string(password.LevelBasic)
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// Load applies defaults, the JSON file named by -c/-config, environment
// variables read through getenv and finally flags from args.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.Getenv)
}

// UseS3DenyList reports whether the deny list should be fetched from S3.
func (c *Config) UseS3DenyList() bool {
	return c.S3Bucket != "" && c.DenyListS3Key != ""
}

// Validate checks that required secrets are present and that every
// enumerated or numeric setting is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" {
		errs = append(errs, fmt.Errorf("%w: access token secret (JWT_SECRET)", common.ErrConfigurationMissing))
	}
	if c.EncryptionKey == "" {
		errs = append(errs, fmt.Errorf("%w: encryption key (ENCRYPTION_KEY)", common.ErrConfigurationMissing))
	}
	if c.EndpointAddrGRPC == "" {
		errs = append(errs, fmt.Errorf("%w: grpc address", common.ErrConfigurationMissing))
	}

	switch c.SigningAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported signing algorithm %q", c.SigningAlgorithm))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.KDFIterations < cryptox.MinIterations {
		errs = append(errs, fmt.Errorf("kdf iterations must be at least %d", cryptox.MinIterations))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if _, err := password.ParseLevel(c.PasswordPolicyLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.DenyListS3Key != "" && c.S3Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: s3 bucket for deny list", common.ErrConfigurationMissing))
	}

	return errors.Join(errs...)
}
