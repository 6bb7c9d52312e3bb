package config

import (
	"flag"
	"os"

	"github.com/dvmarques/sessionauth/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     access token HMAC secret
//	-p string     refresh token HMAC secret
//	-t duration   access token validity (e.g., "15m", "90s")
//	-r duration   refresh token validity (e.g., "168h")
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
// Flags that are not passed leave the current values untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-p", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.RunAddress, "a", config.RunAddress, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "p", config.RefreshTokenSecret, "refresh token secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity duration")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity duration")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
