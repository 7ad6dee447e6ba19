// internal/storage/models/price.go
package models

import "time"

// PriceRecord is the persisted form of a computed price sample.
type PriceRecord struct {
	ID            int64
	Mint          string
	PriceSOL      float64
	PriceUSD      float64
	Confidence    float64
	SourcePool    string
	PoolAddress   string
	Slot          uint64
	SOLReserves   float64
	TokenReserves float64
	Timestamp     time.Time
}
