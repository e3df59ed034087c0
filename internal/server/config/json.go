package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept "15m"
// or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	MetricsAddr         string         `json:"metrics_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	AccessTokenSecret   string         `json:"access_token_secret"`
	RefreshTokenSecret  string         `json:"refresh_token_secret"`
	SigningAlgorithm    string         `json:"signing_algorithm"`
	AccessTokenTTL      timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL     timex.Duration `json:"refresh_token_ttl"`
	EncryptionKey       string         `json:"encryption_key"`
	KDFIterations       int            `json:"kdf_iterations"`
	BcryptCost          int            `json:"bcrypt_cost"`
	PasswordPolicyLevel string         `json:"password_policy_level"`
	DenyListPath        string         `json:"deny_list_path"`
	DenyListURL         string         `json:"deny_list_url"`
	DenyListS3Key       string         `json:"deny_list_s3_key"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays the file given with -c/-config onto config. Keys absent
// from the file keep their current values.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessTokenSecret = c.AccessTokenSecret
	config.RefreshTokenSecret = c.RefreshTokenSecret
	config.SigningAlgorithm = c.SigningAlgorithm
	config.AccessTokenTTL = c.AccessTokenTTL.Duration
	config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	config.EncryptionKey = c.EncryptionKey
	config.KDFIterations = c.KDFIterations
	config.BcryptCost = c.BcryptCost
	config.PasswordPolicyLevel = c.PasswordPolicyLevel
	config.DenyListPath = c.DenyListPath
	config.DenyListURL = c.DenyListURL
	config.DenyListS3Key = c.DenyListS3Key
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.LogLevel = c.LogLevel

	return nil
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:    c.EndpointAddrGRPC,
		MetricsAddr:         c.MetricsAddr,
		DatabaseDSN:         c.DatabaseDSN,
		AccessTokenSecret:   c.AccessTokenSecret,
		RefreshTokenSecret:  c.RefreshTokenSecret,
		SigningAlgorithm:    c.SigningAlgorithm,
		AccessTokenTTL:      timex.Duration{Duration: c.AccessTokenTTL},
		RefreshTokenTTL:     timex.Duration{Duration: c.RefreshTokenTTL},
		EncryptionKey:       c.EncryptionKey,
		KDFIterations:       c.KDFIterations,
		BcryptCost:          c.BcryptCost,
		PasswordPolicyLevel: c.PasswordPolicyLevel,
		DenyListPath:        c.DenyListPath,
		DenyListURL:         c.DenyListURL,
		DenyListS3Key:       c.DenyListS3Key,
		S3RootUser:          c.S3RootUser,
		S3RootPassword:      c.S3RootPassword,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		LogLevel:            c.LogLevel,
	}
}
