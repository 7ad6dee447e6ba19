// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/storage/models"
)

// Storage persists price records out of the hot path. The engine never
// depends on a write succeeding; a failed save is logged and dropped.
type Storage interface {
	SavePriceRecord(ctx context.Context, record *models.PriceRecord) error
	LoadPriceHistory(ctx context.Context, mint solana.PublicKey, limit int) ([]*models.PriceRecord, error)

	RunMigrations(ctx context.Context) error
	Close()
}
