package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists balances, allowances and a journal of every mutation
// in PostgreSQL.
type PostgresLedger struct {
	db   *pgxpool.Pool
	hook Hook
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, opts ...Option) *PostgresLedger {
	o := buildOptions(opts)
	return &PostgresLedger{db: db, hook: o.hook}
}

// BalanceOf returns the committed balance of account.
func (l *PostgresLedger) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	return readAmount(ctx, l.db, `SELECT amount::text FROM balances WHERE address = $1`, account.Hex())
}

// Allowance returns the committed allowance of spender over owner's balance.
func (l *PostgresLedger) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return readAmount(ctx, l.db, `SELECT amount::text FROM allowances WHERE owner = $1 AND spender = $2`, owner.Hex(), spender.Hex())
}

// TotalSupply returns the committed total supply.
func (l *PostgresLedger) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return readAmount(ctx, l.db, `SELECT amount::text FROM ledger_supply WHERE id = 1`)
}

// Update runs fn inside a database transaction.
func (l *PostgresLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ptx := &postgresTx{tx: tx, hook: l.hook, id: uuid.New()}
	if err := fn(ptx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type postgresTx struct {
	tx      pgx.Tx
	hook    Hook
	id      uuid.UUID
	entries int
}

func (p *postgresTx) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	return readAmount(ctx, p.tx, `SELECT amount::text FROM balances WHERE address = $1 FOR UPDATE`, account.Hex())
}

func (p *postgresTx) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return readAmount(ctx, p.tx, `SELECT amount::text FROM allowances WHERE owner = $1 AND spender = $2 FOR UPDATE`, owner.Hex(), spender.Hex())
}

func (p *postgresTx) Apply(ctx context.Context, from, to common.Address, value *uint256.Int) error {
	return applyMutation(ctx, p.hook, p, Mutation{From: from, To: to, Value: value})
}

func (p *postgresTx) Approve(ctx context.Context, owner, spender common.Address, value *uint256.Int) error {
	return approve(ctx, p, owner, spender, value)
}

func (p *postgresTx) SpendAllowance(ctx context.Context, owner, spender common.Address, value *uint256.Int) error {
	return spendAllowance(ctx, p, owner, spender, value)
}

func (p *postgresTx) setBalance(ctx context.Context, account common.Address, value *uint256.Int) error {
	_, err := p.tx.Exec(ctx, `INSERT INTO balances (address, amount) VALUES ($1, $2::numeric)
        ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`, account.Hex(), value.Dec())
	return err
}

func (p *postgresTx) supply(ctx context.Context) (*uint256.Int, error) {
	return readAmount(ctx, p.tx, `SELECT amount::text FROM ledger_supply WHERE id = 1 FOR UPDATE`)
}

func (p *postgresTx) setSupply(ctx context.Context, value *uint256.Int) error {
	_, err := p.tx.Exec(ctx, `INSERT INTO ledger_supply (id, amount) VALUES (1, $1::numeric)
        ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount`, value.Dec())
	return err
}

func (p *postgresTx) setAllowance(ctx context.Context, owner, spender common.Address, value *uint256.Int) error {
	_, err := p.tx.Exec(ctx, `INSERT INTO allowances (owner, spender, amount) VALUES ($1, $2, $3::numeric)
        ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`, owner.Hex(), spender.Hex(), value.Dec())
	return err
}

func (p *postgresTx) journal(ctx context.Context, m Mutation) error {
	if p.entries == 0 {
		if _, err := p.tx.Exec(ctx, `INSERT INTO transactions (id, created_at) VALUES ($1, now())`, p.id); err != nil {
			return err
		}
	}
	p.entries++
	_, err := p.tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, seq, from_address, to_address, amount)
        VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
		uuid.New(), p.id, p.entries, m.From.Hex(), m.To.Hex(), m.Value.Dec())
	return err
}

func readAmount(ctx context.Context, q querier, query string, args ...any) (*uint256.Int, error) {
	var raw string
	if err := q.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", raw, err)
	}
	return amount, nil
}
