package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lavanderia/internal/core"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository is the SQLite-backed ledger store. Every query on user-owned
// tables carries the owning user_id predicate; a row that exists under a
// different user is indistinguishable from a missing row.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// applyMigrations brings the schema up to date from the embedded migration
// files. Already-applied versions are a no-op, so every process can run this
// on startup.
func applyMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return source.Close()
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// translateError maps driver errors to the domain taxonomy: unique-constraint
// violations become ValidationErrors, missing rows become ErrNotFound.
// Constraint detection is by message because the driver does not expose
// structured codes for it.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		if strings.Contains(msg, "users.email") {
			return core.NewValidationError("email already registered")
		}
		return core.NewValidationError("duplicate value violates a uniqueness rule")
	}
	return err
}

// CreateUser inserts a user. Duplicate emails surface as ValidationError.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (nome, email, senha_hash, role) VALUES (?, ?, ?, ?)`,
		u.Nome, u.Email, u.SenhaHash, string(u.Role))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}
	u.ID = id
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, nome, email, senha_hash, role, criado_em FROM users WHERE email = ?`, email))
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, nome, email, senha_hash, role, criado_em FROM users WHERE id = ?`, id))
}

// ListUsers returns all users; admin-only surface.
func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nome, email, senha_hash, role, criado_em FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanUser(row rowScanner) (core.User, error) {
	var (
		u        core.User
		role     string
		criadoEm string
	)
	if err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &role, &criadoEm); err != nil {
		return core.User{}, translateError(err)
	}
	u.Role = core.Role(role)
	// SQLite CURRENT_TIMESTAMP defaults come back as text.
	if t, err := time.Parse("2006-01-02 15:04:05", criadoEm); err == nil {
		u.CriadoEm = t
	}
	return u, nil
}
