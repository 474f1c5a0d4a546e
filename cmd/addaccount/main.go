package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/term"

	"github.com/spec-kit/access-portal/internal/auth"
	"github.com/spec-kit/access-portal/internal/config"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/observability"
	"github.com/spec-kit/access-portal/internal/persistence"
	"github.com/spec-kit/access-portal/internal/repository"
)

// addaccount provisions portal accounts: the portal has no self-registration,
// so operators create accounts from the personnel roster with this tool.
func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("addaccount", flag.ContinueOnError)
	fs.SetOutput(stderr)

	identifier := fs.String("identifier", "", "Login handle")
	roleClass := fs.String("role-class", string(domain.RoleClassCivilian), "Role class (1 officer, 2 airman, 3 civilian)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	admin := fs.Bool("admin", false, "Grant admin access")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *identifier == "" {
		fmt.Fprintln(stdout, "Usage: addaccount -identifier <handle> [-role-class <1|2|3>] [-password <password>] [-admin]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: identifier")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	accounts := repository.NewAccountRepository(pg.PoolHandle())

	if _, err := accounts.GetByIdentifier(ctx, *identifier); err == nil {
		return fmt.Errorf("account %s already exists", *identifier)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		Identifier:   *identifier,
		RoleClass:    domain.RoleClass(*roleClass),
		PasswordHash: hash,
		IsAdmin:      *admin,
		IsNewUser:    true,
		IsApproved:   *admin, // admins skip the request flow
	}
	if err := accounts.Create(ctx, account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Fprintf(stdout, "Account %s created with ID %s\n", account.Identifier, account.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// fallback for pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
