// adminctl bootstraps an ADMIN user. The HTTP surface never grants the
// ADMIN role, so the first administrator is created out of band, directly
// against the users table.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dpolyakov/minimart/internal/common"
	"github.com/dpolyakov/minimart/internal/server/models"
	"github.com/dpolyakov/minimart/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "adminctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("adminctl", flag.ContinueOnError)
	dsn := fs.String("d", "", "PostgreSQL DSN")
	email := fs.String("e", "", "email of the admin account to create")
	cost := fs.Int("b", 12, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dsn == "" {
		return errors.New("-d (database DSN) is required")
	}
	if !strings.Contains(*email, "@") {
		return errors.New("-e must be a valid email address")
	}

	password, err := getPassword(out)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword(password, *cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer db.Close()

	created, err := users.NewPostgresRepository(db).Create(ctx, &models.User{
		Email:        *email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, common.ErrEmailTaken) {
		return fmt.Errorf("email %s is already registered", *email)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created admin %s (id %s)\n", created.Email, created.ID)
	return nil
}

// getPassword prompts twice without echo and requires both entries to match.
func getPassword(out io.Writer) ([]byte, error) {
	first, err := promptPassword(out, "Enter password: ")
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, errors.New("password must not be empty")
	}

	second, err := promptPassword(out, "Repeat password: ")
	if err != nil {
		return nil, err
	}
	if string(first) != string(second) {
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}

func promptPassword(out io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	return pw, err
}
