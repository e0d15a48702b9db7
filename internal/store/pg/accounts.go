package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"guardianchain.app/internal/auth"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations owned by this package.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// AccountDirectory reads role and tier assignments from the accounts table.
// It never writes them.
type AccountDirectory struct {
	db *sql.DB
}

var _ auth.Directory = (*AccountDirectory)(nil)

func NewAccountDirectory(db *sql.DB) *AccountDirectory {
	return &AccountDirectory{db: db}
}

func (d *AccountDirectory) LookupAccount(ctx context.Context, id string) (auth.Basis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return auth.Basis{}, fmt.Errorf("%w: account id is required", auth.ErrInvalidInput)
	}
	if d.db == nil {
		return auth.Basis{}, errors.New("database connection unavailable")
	}

	var (
		b          auth.Basis
		role, tier string
	)
	err := d.db.QueryRowContext(ctx, `select id, email, role, tier from accounts where id = $1`, id).
		Scan(&b.ID, &b.Email, &role, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Basis{}, fmt.Errorf("%w: account %s", auth.ErrNotFound, id)
	}
	if err != nil {
		return auth.Basis{}, fmt.Errorf("lookup account %s: %w", id, err)
	}
	// Unrecognized values stay at the floor; issuance normalizes them.
	b.Role, _ = auth.ParseRole(role)
	b.Tier, _ = auth.ParseTier(tier)
	return b, nil
}
