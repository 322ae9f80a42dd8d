package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the persisted administrative state of a token.
type Settings struct {
	Owner     common.Address
	FeeRate   uint64
	Paused    bool
	UpdatedAt time.Time
}

// SettingsStore persists Settings. Load reports false when nothing was saved yet.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}

type memorySettings struct {
	mu    sync.RWMutex
	saved *Settings
}

// NewMemorySettings constructs an in-memory settings store.
func NewMemorySettings() SettingsStore {
	return &memorySettings{}
}

func (m *memorySettings) Load(_ context.Context) (Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.saved == nil {
		return Settings{}, false, nil
	}
	return *m.saved, true, nil
}

func (m *memorySettings) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &s
	return nil
}

// PostgresSettings stores Settings in the single-row token_settings table.
type PostgresSettings struct {
	db *pgxpool.Pool
}

// NewPostgresSettings builds a Postgres-backed settings store.
func NewPostgresSettings(db *pgxpool.Pool) *PostgresSettings {
	return &PostgresSettings{db: db}
}

// Load reads the settings row.
func (p *PostgresSettings) Load(ctx context.Context) (Settings, bool, error) {
	var (
		s     Settings
		owner string
		rate  int64
	)
	err := p.db.QueryRow(ctx, `SELECT owner, fee_rate, paused, updated_at FROM token_settings WHERE id = 1`).
		Scan(&owner, &rate, &s.Paused, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, false, nil
		}
		return Settings{}, false, err
	}
	s.Owner = common.HexToAddress(owner)
	s.FeeRate = uint64(rate)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, true, nil
}

// Save upserts the settings row.
func (p *PostgresSettings) Save(ctx context.Context, s Settings) error {
	_, err := p.db.Exec(ctx, `INSERT INTO token_settings (id, owner, fee_rate, paused, updated_at)
        VALUES (1, $1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET owner = EXCLUDED.owner, fee_rate = EXCLUDED.fee_rate,
            paused = EXCLUDED.paused, updated_at = EXCLUDED.updated_at`,
		s.Owner.Hex(), int64(s.FeeRate), s.Paused, s.UpdatedAt.UTC())
	return err
}
