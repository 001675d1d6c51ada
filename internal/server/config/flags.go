package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/imghost/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-t string   backing-store API token
//	-o string   backing-store owner (account or organization)
//	-n string   default store name
//	-s string   public site base URL
//	-w string   global deploy hook URL
//	-m int      upload session TTL, minutes
//	-r string   redis address
//	-z string   IANA time zone for date paths
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-o", "-n", "-s", "-w", "-m", "-r", "-z"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.GithubToken, "t", config.GithubToken, "backing store API token")
	fs.StringVar(&config.GithubOwner, "o", config.GithubOwner, "backing store owner")
	fs.StringVar(&config.DefaultStoreName, "n", config.DefaultStoreName, "default store name")
	fs.StringVar(&config.SiteURL, "s", config.SiteURL, "public site base URL")
	fs.StringVar(&config.DeployHookURL, "w", config.DeployHookURL, "global deploy hook URL")

	sessionTTL := fs.Int("m", int(config.SessionTTL.Minutes()), "upload session TTL (in minutes)")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.TimeZone, "z", config.TimeZone, "time zone for date-based paths")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
