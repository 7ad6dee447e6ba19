// ==============================================
// File: internal/decoder/registry.go
// ==============================================
package decoder

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// Registry maps owning program ids to the decoders able to parse their
// accounts. Ambiguous or legacy program ids may carry several candidates;
// they are probed in registration order and the first success wins.
type Registry struct {
	mu        sync.RWMutex
	byProgram map[solana.PublicKey][]Decoder
	logger    *zap.Logger
}

// NewRegistry creates an empty decoder registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byProgram: make(map[solana.PublicKey][]Decoder),
		logger:    logger.Named("decoder_registry"),
	}
}

// Register adds a decoder for every program id it claims.
func (r *Registry) Register(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, program := range d.Programs() {
		r.byProgram[program] = append(r.byProgram[program], d)
	}

	r.logger.Info("Decoder registered",
		zap.String("name", d.Name()),
		zap.Int("programs", len(d.Programs())))
}

// Candidates returns the decoders registered for a program id.
func (r *Registry) Candidates(program solana.PublicKey) []Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decoders := r.byProgram[program]
	result := make([]Decoder, len(decoders))
	copy(result, decoders)
	return result
}

// Decode probes the candidates for owner until one produces a price.
// An unknown owner or a failed parse is a normal miss, not an error:
// unrelated-program accounts pass through here all the time.
func (r *Registry) Decode(owner solana.PublicKey, accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	for _, d := range r.Candidates(owner) {
		if result, ok := d.DecodeAndCalculate(accounts, baseMint, quoteMint); ok {
			return result, true
		}
	}
	return nil, false
}

// Programs returns all program ids with at least one registered decoder.
func (r *Registry) Programs() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	programs := make([]solana.PublicKey, 0, len(r.byProgram))
	for program := range r.byProgram {
		programs = append(programs, program)
	}
	return programs
}
