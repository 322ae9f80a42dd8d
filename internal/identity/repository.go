package identity

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists credentials.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByAddress(ctx context.Context, address common.Address) (Account, error)
	UpdateTokenVersion(ctx context.Context, address common.Address, version int) error
	TouchLogin(ctx context.Context, address common.Address, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed credentials repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts new credentials.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO credentials (address, secret_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4)`, account.Address.Hex(), account.SecretHash, account.TokenVersion, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// FindByAddress fetches the credentials of address.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address common.Address) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT address, secret_hash, token_version, created_at, last_login
        FROM credentials WHERE address = $1`, address.Hex())
	var (
		raw     string
		account Account
	)
	if err := row.Scan(&raw, &account.SecretHash, &account.TokenVersion, &account.CreatedAt, &account.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	account.Address = common.HexToAddress(raw)
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

// UpdateTokenVersion stores a new token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, address common.Address, version int) error {
	return r.update(ctx, `UPDATE credentials SET token_version = $1 WHERE address = $2`, version, address.Hex())
}

// TouchLogin records a successful login.
func (r *PostgresRepository) TouchLogin(ctx context.Context, address common.Address, at time.Time) error {
	return r.update(ctx, `UPDATE credentials SET last_login = $1 WHERE address = $2`, at.UTC(), address.Hex())
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
