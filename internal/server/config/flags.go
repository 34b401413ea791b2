package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/flagx"
)

// parseFlags overlays command-line flags onto cfg.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address
//	-d string   database DSN (postgres:// or sqlite://)
//	-l string   log level
//	-t int      session token validity, hours
//
// Secrets and the trust-gate bypass are deliberately absent: they are read
// from the environment only.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-l", "-t"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to serve HTTP")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "address and port to serve gRPC health")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	sessionHours := fs.Int("t", int(cfg.SessionTokenTTL.Hours()), "session_token_validity (in hours)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.SessionTokenTTL = time.Duration(*sessionHours) * time.Hour
		}
	})
	return nil
}
