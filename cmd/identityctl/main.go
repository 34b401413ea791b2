// identityctl is the operator tool for gophidentity. It mints tokens with
// the server's secrets, bootstraps the first administrator and applies
// migrations. Configuration comes from the same IDENTITY_* environment
// variables the server reads.
//
// Usage:
//
//	identityctl service-token --caller gateway
//	identityctl session-token --id <uuid> --handle h --email e [--admin]
//	identityctl create-admin --handle h --email e [--password-stdin]
//	identityctl migrate
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophidentity/internal/server/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	return execute(ctx, cfg, args, stdin, stdout)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `identityctl manages a gophidentity deployment.

Commands:
  service-token   mint a service token for an internal caller
  session-token   mint a session token for an existing account
  create-admin    create an administrator account in the store
  migrate         apply database migrations

Run "identityctl <command> --help" for command flags.
`)
}
