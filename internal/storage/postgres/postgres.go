// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/storage/models"
)

// Storage persists price records in PostgreSQL via a pgx pool.
type Storage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Storage, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Storage{pool: pool, logger: logger.Named("postgres")}, nil
}

// RunMigrations creates the price_records table if it does not exist.
func (s *Storage) RunMigrations(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS price_records (
	id             BIGSERIAL PRIMARY KEY,
	mint           TEXT             NOT NULL,
	price_sol      DOUBLE PRECISION NOT NULL,
	price_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_pool    TEXT             NOT NULL DEFAULT '',
	pool_address   TEXT             NOT NULL DEFAULT '',
	slot           BIGINT           NOT NULL DEFAULT 0,
	sol_reserves   DOUBLE PRECISION NOT NULL DEFAULT 0,
	token_reserves DOUBLE PRECISION NOT NULL DEFAULT 0,
	ts             TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_records_mint_ts ON price_records (mint, ts DESC);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	s.logger.Info("Migrations applied")
	return nil
}

// SavePriceRecord inserts one price sample.
func (s *Storage) SavePriceRecord(ctx context.Context, record *models.PriceRecord) error {
	const q = `
INSERT INTO price_records
	(mint, price_sol, price_usd, confidence, source_pool, pool_address, slot, sol_reserves, token_reserves, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, q,
		record.Mint,
		record.PriceSOL,
		record.PriceUSD,
		record.Confidence,
		record.SourcePool,
		record.PoolAddress,
		int64(record.Slot),
		record.SOLReserves,
		record.TokenReserves,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save price record: %w", err)
	}
	return nil
}

// LoadPriceHistory returns the most recent samples for a mint in
// chronological order.
func (s *Storage) LoadPriceHistory(ctx context.Context, mint solana.PublicKey, limit int) ([]*models.PriceRecord, error) {
	const q = `
SELECT id, mint, price_sol, price_usd, confidence, source_pool, pool_address, slot, sol_reserves, token_reserves, ts
FROM (
	SELECT * FROM price_records WHERE mint = $1 ORDER BY ts DESC LIMIT $2
) recent
ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, q, mint.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	defer rows.Close()

	var records []*models.PriceRecord
	for rows.Next() {
		var (
			r    models.PriceRecord
			slot int64
		)
		if err := rows.Scan(&r.ID, &r.Mint, &r.PriceSOL, &r.PriceUSD, &r.Confidence,
			&r.SourcePool, &r.PoolAddress, &slot, &r.SOLReserves, &r.TokenReserves, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		r.Slot = uint64(slot)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price records: %w", err)
	}

	return records, nil
}

// Close releases the connection pool.
func (s *Storage) Close() {
	s.pool.Close()
}
