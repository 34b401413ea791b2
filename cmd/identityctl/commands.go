package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/password"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"
	"github.com/dmitrijs2005/gophidentity/internal/shared"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type command func(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error

var commands = map[string]command{
	"service-token": serviceToken,
	"session-token": sessionToken,
	"create-admin":  createAdmin,
	"migrate":       migrate,
}

func execute(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd(ctx, cfg, args[1:], stdin, stdout)
}

// parse runs fs over args. A help request prints the defaults and returns
// pflag.ErrHelp, which callers treat as success.
func parse(fs *pflag.FlagSet, args []string, stdout io.Writer) error {
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func helpOK(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func serviceToken(_ context.Context, cfg *config.Config, args []string, _ io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("service-token", pflag.ContinueOnError)
	caller := fs.String("caller", "", "caller type the token asserts, e.g. gateway")
	if err := parse(fs, args, stdout); err != nil {
		return helpOK(err)
	}
	if *caller == "" {
		return errors.New("--caller is required")
	}

	token, err := auth.NewIssuer(cfg).IssueServiceToken(*caller)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func sessionToken(_ context.Context, cfg *config.Config, args []string, _ io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("session-token", pflag.ContinueOnError)
	id := fs.String("id", "", "account id (uuid)")
	handle := fs.String("handle", "", "account handle")
	email := fs.String("email", "", "account email")
	admin := fs.Bool("admin", false, "mark the session as administrator")
	if err := parse(fs, args, stdout); err != nil {
		return helpOK(err)
	}
	if _, err := uuid.Parse(*id); err != nil {
		return fmt.Errorf("--id must be a uuid: %w", err)
	}

	role := models.RoleStandard
	if *admin {
		role = models.RoleAdministrator
	}
	token, err := auth.NewIssuer(cfg).IssueSessionToken(*id, role, *handle, *email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func createAdmin(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	handle := fs.String("handle", "", "administrator handle")
	email := fs.String("email", "", "administrator email")
	fromStdin := fs.Bool("password-stdin", false, "read the password from the first line of stdin")
	dsn := fs.String("dsn", cfg.DatabaseDSN, "database DSN")
	if err := parse(fs, args, stdout); err != nil {
		return helpOK(err)
	}

	var (
		secret []byte
		err    error
	)
	if *fromStdin {
		secret, err = readLine(stdin)
	} else {
		secret, err = promptPassword(stdout)
	}
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer shared.WipeByteArray(secret)

	store, err := openStore(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	hasher, err := password.NewBcrypt(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		return err
	}

	svc := services.NewAccountService(store.Accounts(), hasher, auth.NewIssuer(cfg), services.WithStoreTimeout(cfg.StoreTimeout))
	view, err := svc.CreateAdministrator(ctx, services.RegisterInput{
		Handle:   *handle,
		Email:    *email,
		Password: string(secret),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "created administrator %s (%s)\n", view.Handle, view.ID)
	return err
}

func migrate(ctx context.Context, cfg *config.Config, args []string, _ io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	dsn := fs.String("dsn", cfg.DatabaseDSN, "database DSN")
	if err := parse(fs, args, stdout); err != nil {
		return helpOK(err)
	}

	store, err := openStore(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = fmt.Fprintln(stdout, "migrations applied")
	return err
}

// openStore opens the store and brings its schema up to date.
func openStore(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	store, err := repomanager.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// promptPassword asks twice without echo and insists the answers match.
func promptPassword(w io.Writer) ([]byte, error) {
	fmt.Fprint(w, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(w, "Repeat password: ")
	again, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		shared.WipeByteArray(pw)
		return nil, err
	}
	defer shared.WipeByteArray(again)

	if string(pw) != string(again) {
		shared.WipeByteArray(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
