package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var serverFlags = []string{
	"-a", "-m", "-d", "-s", "-rs", "-alg", "-t", "-r", "-k", "-i", "-bc",
	"-pl", "-dl", "-du", "-dk", "-u", "-p", "-b", "-g", "-e", "-l",
}

// parseFlags overlays command-line flags onto config.
//
//	-a   string  gRPC bind address (":50051")
//	-m   string  metrics bind address; empty disables /metrics
//	-d   string  PostgreSQL DSN; empty selects the in-memory store
//	-s   string  access token signing secret
//	-rs  string  refresh token signing secret (defaults to -s)
//	-alg string  HS256, HS384 or HS512
//	-t   int     access token lifetime, minutes
//	-r   int     refresh token lifetime, minutes
//	-k   string  email encryption master key
//	-i   int     PBKDF2 iterations
//	-bc  int     bcrypt cost
//	-pl  string  password policy level: basic or strict
//	-dl  string  deny list file
//	-du  string  deny list URL
//	-dk  string  deny list object key in the S3 bucket
//	-u, -p, -b, -g, -e  S3 user, password, bucket, region, endpoint
//	-l   string  log level
//
// Only these flags are considered; the rest of args is ignored.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.SigningAlgorithm, "alg", config.SigningAlgorithm, "token signing algorithm")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token ttl (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token ttl (in minutes)")

	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "encryption master key")
	fs.IntVar(&config.KDFIterations, "i", config.KDFIterations, "pbkdf2 iterations")
	fs.IntVar(&config.BcryptCost, "bc", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.PasswordPolicyLevel, "pl", config.PasswordPolicyLevel, "password policy level")
	fs.StringVar(&config.DenyListPath, "dl", config.DenyListPath, "password deny list file")
	fs.StringVar(&config.DenyListURL, "du", config.DenyListURL, "password deny list URL")
	fs.StringVar(&config.DenyListS3Key, "dk", config.DenyListS3Key, "password deny list S3 key")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	// Minute flags only replace a TTL when given, so finer values from the
	// file or environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Minute
		}
	})

	return nil
}
