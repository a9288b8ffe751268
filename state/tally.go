// Package state holds the books of the overlay protocol: the multi-class
// balance ledger, the property registry, and the crowdsale, channel,
// oracle and KYC records.
//
// This package provides:
//   - Ledger, mapping (address, property, class) to a signed amount
//   - Registry, the property and contract entries ("SP" records)
//   - CrowdsaleBook, the active crowdsales keyed by issuer address
//   - ChannelBook, trade channels with commits and pending withdrawals
//   - OracleBook, append-only per-contract price history
//   - KYCBook, registrars and address attestations
//   - Store, badger-backed snapshot persistence for all of the above
//
// All books are independently locked. When a transition touches the
// registry and the ledger, the registry lock is taken first.
package state

import (
	"sort"
	"sync"
)

// BalanceClass names one bucket of an address's holdings in a property.
type BalanceClass uint8

// Balance classes.
const (
	// Available is the freely spendable balance.
	Available BalanceClass = iota
	// SellOfferReserve holds tokens locked under a DEx sell offer.
	SellOfferReserve
	// ContractDexMargin holds posted margin for contract positions.
	ContractDexMargin
	// ContractDexReserve holds collateral locked behind pegged currency.
	ContractDexReserve
	// PositiveBalance is net long contract exposure.
	PositiveBalance
	// NegativeBalance is net short contract exposure.
	NegativeBalance
	// ChannelReserve holds funds committed to a trade channel.
	ChannelReserve
	// Unvested holds tokens granted but not yet vested.
	Unvested

	balanceClassCount
)

func (c BalanceClass) String() string {
	switch c {
	case Available:
		return "available"
	case SellOfferReserve:
		return "selloffer_reserve"
	case ContractDexMargin:
		return "contractdex_margin"
	case ContractDexReserve:
		return "contractdex_reserve"
	case PositiveBalance:
		return "positive_balance"
	case NegativeBalance:
		return "negative_balance"
	case ChannelReserve:
		return "channel_reserve"
	case Unvested:
		return "unvested"
	default:
		return "unknown"
	}
}

// Tally is the per-class holdings of one address in one property.
type Tally struct {
	Amounts [balanceClassCount]int64
}

// Balance returns the holdings in one class.
func (t *Tally) Balance(class BalanceClass) int64 {
	if t == nil || class >= balanceClassCount {
		return 0
	}
	return t.Amounts[class]
}

// Empty reports whether every class is zero.
func (t *Tally) Empty() bool {
	for _, v := range t.Amounts {
		if v != 0 {
			return false
		}
	}
	return true
}

// Ledger maps (address, property) to a Tally.
//
// Update rejects deltas that would take a class negative instead of
// applying them; callers check balances first, so a rejected update
// after a passed precondition is a corruption signal.
type Ledger struct {
	mu      sync.RWMutex
	tallies map[string]map[uint32]*Tally
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		tallies: make(map[string]map[uint32]*Tally),
	}
}

// GetBalance returns the holdings of address in property for one class.
func (l *Ledger) GetBalance(address string, property uint32, class BalanceClass) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tallies[address][property].Balance(class)
}

// Update applies delta to one class of (address, property). It returns
// false and applies nothing when delta is zero, the class is unknown, or
// the result would be negative.
func (l *Ledger) Update(address string, property uint32, class BalanceClass, delta int64) bool {
	if delta == 0 || class >= balanceClassCount {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	byProp := l.tallies[address]
	if byProp == nil {
		byProp = make(map[uint32]*Tally)
		l.tallies[address] = byProp
	}
	t := byProp[property]
	if t == nil {
		t = &Tally{}
		byProp[property] = t
	}

	next := t.Amounts[class] + delta
	if next < 0 {
		return false
	}
	t.Amounts[class] = next
	return true
}

// HasTally reports whether the address appears in the ledger at all.
func (l *Ledger) HasTally(address string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tallies[address]) > 0
}

// PropertiesOf returns the property ids the address holds any balance in,
// in ascending order.
func (l *Ledger) PropertiesOf(address string) []uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []uint32
	for id, t := range l.tallies[address] {
		if !t.Empty() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TallyOf returns a copy of the tally of (address, property).
func (l *Ledger) TallyOf(address string, property uint32) Tally {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if t := l.tallies[address][property]; t != nil {
		return *t
	}
	return Tally{}
}

// TotalTokens sums the holdings of property over every address and class.
func (l *Ledger) TotalTokens(property uint32) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, byProp := range l.tallies {
		if t := byProp[property]; t != nil {
			for _, v := range t.Amounts {
				total += v
			}
		}
	}
	return total
}

// snapshot returns a deep copy of the tally map for persistence.
func (l *Ledger) snapshot() map[string]map[uint32]*Tally {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cp := make(map[string]map[uint32]*Tally, len(l.tallies))
	for addr, byProp := range l.tallies {
		inner := make(map[uint32]*Tally, len(byProp))
		for id, t := range byProp {
			c := *t
			inner[id] = &c
		}
		cp[addr] = inner
	}
	return cp
}

// restore replaces the ledger contents with a snapshot.
func (l *Ledger) restore(tallies map[string]map[uint32]*Tally) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tallies == nil {
		tallies = make(map[string]map[uint32]*Tally)
	}
	l.tallies = tallies
}
