package state

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Channel is a two-party escrow backed by a multisig address. Funds
// committed to the multisig sit in the ChannelReserve class until traded,
// transferred, withdrawn or expired.
type Channel struct {
	Multisig string
	First    string
	Second   string

	ExpiryHeight      idx.Block
	LastExchangeBlock idx.Block
}

// PendingWithdrawal is a queued exit from a channel, settled by the
// block-connection driver once the deadline block is reached.
type PendingWithdrawal struct {
	Address  string
	Multisig string
	Property uint32
	Amount   int64
	Deadline idx.Block
}

type commitKey struct {
	Multisig string
	Address  string
	Property uint32
}

// ChannelBook stores channels, their commit history and the pending
// withdrawal queue.
type ChannelBook struct {
	mu sync.RWMutex

	channels map[string]*Channel

	// net committed amount per (channel, address, property); withdrawals
	// and instant trades draw it down
	committed map[commitKey]int64

	withdrawals []PendingWithdrawal
}

// NewChannelBook returns an empty book.
func NewChannelBook() *ChannelBook {
	return &ChannelBook{
		channels:  make(map[string]*Channel),
		committed: make(map[commitKey]int64),
	}
}

// Create stores a channel under its multisig address. It returns false
// when the multisig is already taken.
func (b *ChannelBook) Create(ch Channel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.channels[ch.Multisig]; ok {
		return false
	}
	cp := ch
	b.channels[ch.Multisig] = &cp
	return true
}

// Get returns the channel stored under a multisig address.
func (b *ChannelBook) Get(multisig string) (Channel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.channels[multisig]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// IsChannelAddress reports whether the address is a known multisig.
func (b *ChannelBook) IsChannelAddress(address string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.channels[address]
	return ok
}

// FindByParticipant returns the channel the address takes part in, either
// as a counterparty or as the multisig itself.
func (b *ChannelBook) FindByParticipant(address string) (Channel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.channels[address]; ok {
		return *ch, true
	}
	for _, ch := range b.channels {
		if ch.First == address || ch.Second == address {
			return *ch, true
		}
	}
	return Channel{}, false
}

// RecordCommit adds to the net committed amount of (channel, address,
// property).
func (b *ChannelBook) RecordCommit(multisig, address string, property uint32, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.committed[commitKey{multisig, address, property}] += amount
}

// Committed returns the net committed amount of (channel, address,
// property). This bounds what the address may still withdraw.
func (b *ChannelBook) Committed(multisig, address string, property uint32) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.committed[commitKey{multisig, address, property}]
}

// DrawDown reduces the net committed amount. It returns false when the
// remaining entitlement is below the amount.
func (b *ChannelBook) DrawDown(multisig, address string, property uint32, amount int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := commitKey{multisig, address, property}
	if b.committed[key] < amount {
		return false
	}
	b.committed[key] -= amount
	return true
}

// QueueWithdrawal appends to the pending withdrawal queue.
func (b *ChannelBook) QueueWithdrawal(w PendingWithdrawal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.withdrawals = append(b.withdrawals, w)
}

// DueWithdrawals removes and returns every pending withdrawal whose
// deadline is at or before the block.
func (b *ChannelBook) DueWithdrawals(block idx.Block) []PendingWithdrawal {
	b.mu.Lock()
	defer b.mu.Unlock()

	var due []PendingWithdrawal
	kept := b.withdrawals[:0]
	for _, w := range b.withdrawals {
		if w.Deadline <= block {
			due = append(due, w)
			continue
		}
		kept = append(kept, w)
	}
	b.withdrawals = kept
	return due
}

// UpdateExpiry rewrites the expiry height and the last-exchange block of
// a channel.
func (b *ChannelBook) UpdateExpiry(multisig string, expiry, lastExchange idx.Block) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[multisig]
	if !ok {
		return false
	}
	ch.ExpiryHeight = expiry
	ch.LastExchangeBlock = lastExchange
	return true
}

type channelSnapshot struct {
	Channels    map[string]*Channel
	Committed   map[commitKey]int64
	Withdrawals []PendingWithdrawal
}

func (b *ChannelBook) snapshot() channelSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := channelSnapshot{
		Channels:    make(map[string]*Channel, len(b.channels)),
		Committed:   make(map[commitKey]int64, len(b.committed)),
		Withdrawals: append([]PendingWithdrawal(nil), b.withdrawals...),
	}
	for k, ch := range b.channels {
		cp := *ch
		snap.Channels[k] = &cp
	}
	for k, v := range b.committed {
		snap.Committed[k] = v
	}
	return snap
}

func (b *ChannelBook) restore(snap channelSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap.Channels == nil {
		snap.Channels = make(map[string]*Channel)
	}
	if snap.Committed == nil {
		snap.Committed = make(map[commitKey]int64)
	}
	b.channels = snap.Channels
	b.committed = snap.Committed
	b.withdrawals = snap.Withdrawals
}
