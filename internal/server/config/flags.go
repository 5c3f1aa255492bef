package config

import (
	"flag"
	"os"
	"time"

	"github.com/dpolyakov/minimart/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   auth service bind address (e.g., ":8081")
//	-l string   catalog service bind address
//	-w string   gateway bind address
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-f string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-o int      bcrypt cost
//	-A string   auth service URL (gateway upstream)
//	-C string   catalog service URL (gateway upstream)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other packages. Duration flags
// are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-l", "-w", "-d", "-s", "-f", "-t", "-r", "-o", "-A", "-C",
		"-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.AuthAddr, "a", config.AuthAddr, "auth service address and port")
	fs.StringVar(&config.CatalogAddr, "l", config.CatalogAddr, "catalog service address and port")
	fs.StringVar(&config.GatewayAddr, "w", config.GatewayAddr, "gateway address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "f", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.BcryptCost, "o", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.AuthServiceURL, "A", config.AuthServiceURL, "auth service URL")
	fs.StringVar(&config.CatalogServiceURL, "C", config.CatalogServiceURL, "catalog service URL")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
