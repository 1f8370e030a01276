package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotFound is returned by lookups when no account matches.
	ErrNotFound = errors.New("account not found")
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

// Repository persists accounts. Create relies on storage-level uniqueness of
// email; implementations must not check-then-insert.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account. The accounts.email unique constraint resolves
// concurrent registrations; a duplicate maps to ErrEmailTaken.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	acctID, err := uuid.Parse(acct.ID)
	if err != nil {
		return fmt.Errorf("parse account id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)`, acctID, acct.Email, acct.PasswordHash, acct.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindByEmail fetches an account by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// FindByID fetches an account by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, created_at FROM accounts WHERE id = $1`, acctID)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		acct      Account
	)
	if err := row.Scan(&id, &acct.Email, &acct.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.ID = id.String()
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}
