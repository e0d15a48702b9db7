package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"guardianchain.app/internal/config"
	"guardianchain.app/internal/migrate"
	"guardianchain.app/internal/obs"
	"guardianchain.app/internal/store/pg"
)

const usage = "usage: migrate [--dsn DSN] [--env-file PATH] up|down|status"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	dsn := fs.String("dsn", "", "PostgreSQL DSN (default: GUARDIAN_PG_DSN)")
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New(usage)
	}

	cfg, err := config.LoadDatabase(*envFile)
	if err != nil {
		return err
	}
	if *dsn == "" {
		*dsn = cfg.PGDSN
	}
	if *dsn == "" {
		return errors.New("missing DSN: provide --dsn or GUARDIAN_PG_DSN")
	}
	logger, err := obs.NewLogger(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := pg.Open(*dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, pg.Migrations(), migrate.WithLogger(logger))
	switch fs.Arg(0) {
	case "up":
		ran, err := mgr.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "applied %d migration(s)\n", len(ran))
	case "down":
		name, err := mgr.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "rolled back %s\n", name)
	case "status":
		history, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		for _, item := range history {
			fmt.Fprintln(stdout, item)
		}
	default:
		return fmt.Errorf("unknown command %q\n%s", fs.Arg(0), usage)
	}
	return nil
}
