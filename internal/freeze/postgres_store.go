package freeze

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps frozen amounts in the frozen_balances table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed frozen amount store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Frozen returns the frozen amount of account, zero when no row exists.
func (s *PostgresStore) Frozen(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT amount::text FROM frozen_balances WHERE address = $1`, account.Hex()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode frozen amount for %s: %w", account.Hex(), err)
	}
	return amount, nil
}

// SetFrozen upserts the frozen amount of account.
func (s *PostgresStore) SetFrozen(ctx context.Context, account common.Address, amount *uint256.Int) error {
	_, err := s.db.Exec(ctx, `INSERT INTO frozen_balances (address, amount, updated_at)
        VALUES ($1, $2::numeric, now())
        ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()`,
		account.Hex(), amount.Dec())
	return err
}
