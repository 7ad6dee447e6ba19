// ==============================================
// File: internal/store/store.go
// ==============================================

// Package store keeps the latest computed price per mint and a bounded
// per-mint history, with freshness tracking and fire-and-forget
// persistence.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
	"github.com/rovshanmuradov/solana-pricer/internal/storage"
	"github.com/rovshanmuradov/solana-pricer/internal/storage/models"
)

// Config tunes cache freshness and history retention.
type Config struct {
	// FreshnessTTL bounds how old a latest price may be and still count
	// as available. The background sweep evicts at twice this age.
	FreshnessTTL time.Duration

	// SamplingInterval is the expected spacing between price updates for
	// an actively tracked mint.
	SamplingInterval time.Duration

	// GapMultiple sets the history gap threshold as a multiple of
	// SamplingInterval. History entries further than the threshold
	// behind a newly appended entry are purged.
	GapMultiple int

	// HistoryCapacity bounds each mint's in-memory history.
	HistoryCapacity int

	// PersistQueueSize bounds the background persistence queue. On
	// overflow the oldest pending record is dropped.
	PersistQueueSize int

	// SweepInterval controls how often stale cache entries are evicted.
	SweepInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FreshnessTTL:     30 * time.Second,
		SamplingInterval: 1 * time.Second,
		GapMultiple:      10,
		HistoryCapacity:  1000,
		PersistQueueSize: 256,
		SweepInterval:    15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FreshnessTTL <= 0 {
		c.FreshnessTTL = d.FreshnessTTL
	}
	if c.SamplingInterval <= 0 {
		c.SamplingInterval = d.SamplingInterval
	}
	if c.GapMultiple <= 0 {
		c.GapMultiple = d.GapMultiple
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.PersistQueueSize <= 0 {
		c.PersistQueueSize = d.PersistQueueSize
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	return c
}

// GapThreshold is the maximum timestamp spread history tolerates before
// purging older entries.
func (c Config) GapThreshold() time.Duration {
	return time.Duration(c.GapMultiple) * c.SamplingInterval
}

// tokenEntry holds one mint's state. Its mutex serializes mutation of
// that mint only; entries for different mints never contend.
type tokenEntry struct {
	mu      sync.RWMutex
	latest  *pricing.PriceResult
	history []pricing.PriceResult
}

// PriceStore is the concurrent price cache and history manager.
// Construct with New and tear down with Close; it is never a process
// global.
type PriceStore struct {
	cfg    Config
	sink   storage.Storage // nil disables persistence
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[solana.PublicKey]*tokenEntry

	persistCh chan *models.PriceRecord
	dropped   atomic.Int64

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a price store and starts its background workers. A nil
// sink disables persistence; everything else works unchanged.
func New(cfg Config, sink storage.Storage, logger *zap.Logger) *PriceStore {
	cfg = cfg.withDefaults()

	s := &PriceStore{
		cfg:       cfg,
		sink:      sink,
		logger:    logger.Named("price_store"),
		entries:   make(map[solana.PublicKey]*tokenEntry),
		persistCh: make(chan *models.PriceRecord, cfg.PersistQueueSize),
		stopCh:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	if sink != nil {
		s.wg.Add(1)
		go s.persistLoop()
	}

	s.logger.Info("Price store initialized",
		zap.Duration("freshness_ttl", cfg.FreshnessTTL),
		zap.Duration("gap_threshold", cfg.GapThreshold()),
		zap.Int("history_capacity", cfg.HistoryCapacity),
		zap.Bool("persistence", sink != nil))

	return s
}

func (s *PriceStore) entry(mint solana.PublicKey) *tokenEntry {
	s.mu.RLock()
	e, ok := s.entries[mint]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[mint]; ok {
		return e
	}
	e = &tokenEntry{}
	s.entries[mint] = e
	return e
}

// UpdatePrice is the single write path: the latest-price map is updated
// synchronously, history is appended after gap cleanup, and a
// persistence write is queued without blocking the caller.
func (s *PriceStore) UpdatePrice(result *pricing.PriceResult) {
	if result == nil {
		return
	}

	e := s.entry(result.Mint)
	e.mu.Lock()
	e.latest = result
	s.appendHistoryLocked(e, *result)
	e.mu.Unlock()

	s.enqueuePersist(result)
}

// appendHistoryLocked purges entries separated from the new sample by
// more than the gap threshold, then appends. A long gap (downtime,
// inactive token) makes the older trend meaningless downstream.
func (s *PriceStore) appendHistoryLocked(e *tokenEntry, result pricing.PriceResult) {
	threshold := s.cfg.GapThreshold()

	cut := 0
	for cut < len(e.history) && result.Timestamp.Sub(e.history[cut].Timestamp) > threshold {
		cut++
	}
	if cut > 0 {
		e.history = append(e.history[:0], e.history[cut:]...)
	}

	if len(e.history) >= s.cfg.HistoryCapacity {
		e.history = e.history[1:]
	}
	e.history = append(e.history, result)
}

// GetPrice returns the latest price for a mint.
func (s *PriceStore) GetPrice(mint solana.PublicKey) (*pricing.PriceResult, bool) {
	s.mu.RLock()
	e, ok := s.entries[mint]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil, false
	}
	return e.latest, true
}

// GetPriceHistory returns a copy of the mint's history, oldest first.
func (s *PriceStore) GetPriceHistory(mint solana.PublicKey) []pricing.PriceResult {
	s.mu.RLock()
	e, ok := s.entries[mint]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	history := make([]pricing.PriceResult, len(e.history))
	copy(history, e.history)
	return history
}

// GetAvailableTokens returns mints whose latest price is younger than
// the freshness TTL.
func (s *PriceStore) GetAvailableTokens() []solana.PublicKey {
	cutoff := time.Now().Add(-s.cfg.FreshnessTTL)

	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]solana.PublicKey, 0, len(s.entries))
	for mint, e := range s.entries {
		e.mu.RLock()
		fresh := e.latest != nil && e.latest.Timestamp.After(cutoff)
		e.mu.RUnlock()
		if fresh {
			tokens = append(tokens, mint)
		}
	}
	return tokens
}

// Rehydrate bulk-loads persisted history for the given mints, typically
// tokens with open positions at startup. Not a hot-path operation.
func (s *PriceStore) Rehydrate(ctx context.Context, mints []solana.PublicKey) error {
	if s.sink == nil {
		return nil
	}

	for _, mint := range mints {
		records, err := s.sink.LoadPriceHistory(ctx, mint, s.cfg.HistoryCapacity)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}

		e := s.entry(mint)
		e.mu.Lock()
		e.history = e.history[:0]
		for _, rec := range records {
			result := recordToResult(mint, rec)
			s.appendHistoryLocked(e, result)
		}
		if n := len(e.history); n > 0 {
			last := e.history[n-1]
			e.latest = &last
		}
		e.mu.Unlock()

		s.logger.Info("History rehydrated",
			zap.String("mint", mint.String()),
			zap.Int("records", len(records)))
	}
	return nil
}

// enqueuePersist submits a record to the persistence queue, dropping
// the oldest pending record on overflow.
func (s *PriceStore) enqueuePersist(result *pricing.PriceResult) {
	if s.sink == nil || s.closed.Load() {
		return
	}

	rec := resultToRecord(result)
	select {
	case s.persistCh <- rec:
		return
	default:
	}

	select {
	case <-s.persistCh:
		if n := s.dropped.Add(1); n%100 == 1 {
			s.logger.Warn("Persistence queue overflow, dropping oldest",
				zap.Int64("total_dropped", n))
		}
	default:
	}
	select {
	case s.persistCh <- rec:
	default:
	}
}

func (s *PriceStore) persistLoop() {
	defer s.wg.Done()

	for {
		select {
		case rec := <-s.persistCh:
			s.persist(rec)
		case <-s.stopCh:
			s.drainPersistQueue()
			return
		}
	}
}

func (s *PriceStore) drainPersistQueue() {
	for {
		select {
		case rec := <-s.persistCh:
			s.persist(rec)
		default:
			return
		}
	}
}

func (s *PriceStore) persist(rec *models.PriceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.sink.SavePriceRecord(ctx, rec); err != nil {
		s.logger.Warn("Failed to persist price record",
			zap.String("mint", rec.Mint),
			zap.Error(err))
	}
}

func (s *PriceStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep evicts entries whose latest price is older than twice the
// freshness TTL.
func (s *PriceStore) sweep() {
	cutoff := time.Now().Add(-2 * s.cfg.FreshnessTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for mint, e := range s.entries {
		e.mu.RLock()
		stale := e.latest == nil || !e.latest.Timestamp.After(cutoff)
		e.mu.RUnlock()
		if stale {
			delete(s.entries, mint)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Debug("Swept stale price entries", zap.Int("evicted", evicted))
	}
}

// Close stops the background workers and drains the persistence queue.
func (s *PriceStore) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		s.wg.Wait()

		s.logger.Info("Price store closed",
			zap.Int64("dropped_persist_records", s.dropped.Load()))
	})
}

func resultToRecord(result *pricing.PriceResult) *models.PriceRecord {
	return &models.PriceRecord{
		Mint:          result.Mint.String(),
		PriceSOL:      result.PriceSOL,
		PriceUSD:      result.PriceUSD,
		Confidence:    result.Confidence,
		SourcePool:    result.SourcePool,
		PoolAddress:   result.PoolAddress.String(),
		Slot:          result.Slot,
		SOLReserves:   result.SOLReserves,
		TokenReserves: result.TokenReserves,
		Timestamp:     result.Timestamp,
	}
}

func recordToResult(mint solana.PublicKey, rec *models.PriceRecord) pricing.PriceResult {
	poolAddr, _ := solana.PublicKeyFromBase58(rec.PoolAddress)
	return pricing.PriceResult{
		Mint:          mint,
		PriceSOL:      rec.PriceSOL,
		PriceUSD:      rec.PriceUSD,
		Confidence:    rec.Confidence,
		SourcePool:    rec.SourcePool,
		PoolAddress:   poolAddr,
		Slot:          rec.Slot,
		SOLReserves:   rec.SOLReserves,
		TokenReserves: rec.TokenReserves,
		Timestamp:     rec.Timestamp,
	}
}
