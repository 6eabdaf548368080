// Command useradm manages identity records from the command line.
//
// Usage:
//
//	useradm add <email>   register a user, prompting for the password
//	useradm list          print all registered users
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/config"
	"github.com/elegance/identity-provider/internal/server/repositories/users"
	"github.com/elegance/identity-provider/internal/server/services"
	"github.com/elegance/identity-provider/internal/server/shared/db"
	"github.com/elegance/identity-provider/internal/server/storage"
	"github.com/elegance/identity-provider/internal/shared"
	"github.com/elegance/identity-provider/internal/uuidx"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	sl := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := logging.NewSlogLogger(sl)

	conn, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		fatal(err)
	}
	defer conn.Close()

	repo := users.NewPostgresRepository(users.NewEngine(conn, logger), uuidx.NewV4())
	identity := services.NewIdentity(repo, logger, cfg.BcryptCost)

	switch os.Args[1] {
	case "add":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		err = add(ctx, identity, os.Args[2])
	case "list":
		err = list(ctx, repo)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fatal(err)
	}
}

func add(ctx context.Context, identity *services.Identity, email string) error {
	password, err := promptPassword()
	if err != nil {
		return err
	}

	user, err := identity.Register(ctx, email, password)
	if err != nil {
		var verr shared.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			return errors.New("registration rejected")
		}
		return err
	}

	fmt.Printf("created user %s\n", user.UUID)
	return nil
}

func list(ctx context.Context, repo users.Repository) error {
	all, err := repo.All(ctx)
	if err != nil {
		return err
	}

	for _, u := range all {
		fmt.Printf("%-6d %s  %-30s %s\n", u.ID, u.UUID, u.Email, u.CreatedAt.Format(storage.TimeLayout))
	}
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: useradm add <email> | useradm list")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "useradm: %v\n", err)
	os.Exit(1)
}
