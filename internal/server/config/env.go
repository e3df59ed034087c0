package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseEnv overlays set environment variables onto config.
func parseEnv(config *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"GRPC_ADDR":              &config.EndpointAddrGRPC,
		"METRICS_ADDR":           &config.MetricsAddr,
		"DATABASE_DSN":           &config.DatabaseDSN,
		"JWT_SECRET":             &config.AccessTokenSecret,
		"JWT_REFRESH_SECRET":     &config.RefreshTokenSecret,
		"JWT_ALGORITHM":          &config.SigningAlgorithm,
		"ENCRYPTION_KEY":         &config.EncryptionKey,
		"PASSWORD_POLICY":        &config.PasswordPolicyLevel,
		"PASSWORD_DENY_LIST":     &config.DenyListPath,
		"PASSWORD_DENY_LIST_URL": &config.DenyListURL,
		"DENY_LIST_S3_KEY":       &config.DenyListS3Key,
		"S3_ROOT_USER":           &config.S3RootUser,
		"S3_ROOT_PASSWORD":       &config.S3RootPassword,
		"S3_BUCKET":              &config.S3Bucket,
		"S3_REGION":              &config.S3Region,
		"S3_BASE_ENDPOINT":       &config.S3BaseEndpoint,
		"LOG_LEVEL":              &config.LogLevel,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"KDF_ITERATIONS": &config.KDFIterations,
		"BCRYPT_COST":    &config.BcryptCost,
	}
	for name, dst := range ints {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &config.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": &config.RefreshTokenTTL,
	}
	for name, dst := range durations {
		v := getenv(name)
		if v == "" {
			continue
		}
		d, err := parseMinutesOrDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	return nil
}

// parseMinutesOrDuration accepts a whole number of minutes ("15") or a Go
// duration ("15m", "168h").
func parseMinutesOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(v)
}
