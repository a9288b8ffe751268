package state

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// PricePoint is one oracle reading for a contract at a block.
type PricePoint struct {
	High  uint64
	Low   uint64
	Close uint64
}

// OracleBook stores per-contract price history. History is append-only:
// a reading for a (contract, block) pair already written stays as it is.
type OracleBook struct {
	mu     sync.RWMutex
	prices map[uint32]map[idx.Block]PricePoint
}

// NewOracleBook returns an empty book.
func NewOracleBook() *OracleBook {
	return &OracleBook{
		prices: make(map[uint32]map[idx.Block]PricePoint),
	}
}

// Append records a reading for (contract, block). It returns false when
// the pair already holds one.
func (b *OracleBook) Append(contract uint32, block idx.Block, p PricePoint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.prices[contract]
	if history == nil {
		history = make(map[idx.Block]PricePoint)
		b.prices[contract] = history
	}
	if _, ok := history[block]; ok {
		return false
	}
	history[block] = p
	return true
}

// At returns the reading for (contract, block).
func (b *OracleBook) At(contract uint32, block idx.Block) (PricePoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[contract][block]
	return p, ok
}

// Latest returns the most recent reading of the contract at or before
// the block.
func (b *OracleBook) Latest(contract uint32, block idx.Block) (PricePoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var (
		best      PricePoint
		bestBlock idx.Block
		found     bool
	)
	for at, p := range b.prices[contract] {
		if at > block {
			continue
		}
		if !found || at > bestBlock {
			best, bestBlock, found = p, at, true
		}
	}
	return best, found
}

func (b *OracleBook) snapshot() map[uint32]map[idx.Block]PricePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cp := make(map[uint32]map[idx.Block]PricePoint, len(b.prices))
	for contract, history := range b.prices {
		inner := make(map[idx.Block]PricePoint, len(history))
		for block, p := range history {
			inner[block] = p
		}
		cp[contract] = inner
	}
	return cp
}

func (b *OracleBook) restore(prices map[uint32]map[idx.Block]PricePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prices == nil {
		prices = make(map[uint32]map[idx.Block]PricePoint)
	}
	b.prices = prices
}
