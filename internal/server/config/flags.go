package config

import (
	"flag"
	"os"

	"github.com/livepaste/livepaste/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   room token HMAC secret key
//	-r int      room retention, hours
//	-z int      tombstone pruning horizon, versions
//	-w string   path to the static client asset
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-r", "-z", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	retentionHours := fs.Int("r", config.RetentionHours, "room retention (in hours)")
	tombstoneHorizon := fs.Int64("z", config.TombstoneHorizon, "tombstone pruning horizon (in versions)")

	fs.StringVar(&config.StaticAssetPath, "w", config.StaticAssetPath, "path to static client asset")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetentionHours = *retentionHours
	config.TombstoneHorizon = *tombstoneHorizon
}
