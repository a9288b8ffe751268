package state

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Crowdsale is one active fundraiser, keyed by the issuer address. An
// address runs at most one crowdsale at a time.
type Crowdsale struct {
	PropertyID      uint32
	TokensPerUnit   int64
	DesiredProperty uint32
	Deadline        int64
	EarlyBird       uint8
	Percentage      uint8

	// Running totals of tokens created so far.
	UserCreated   int64
	IssuerCreated int64

	// Participation records folded into the property entry on close.
	// TxID -> {amount sent, block time, user tokens, issuer tokens}.
	Database map[common.Hash][4]int64
}

// CrowdsaleBook is the set of active crowdsales.
type CrowdsaleBook struct {
	mu     sync.RWMutex
	active map[string]*Crowdsale
}

// NewCrowdsaleBook returns an empty book.
func NewCrowdsaleBook() *CrowdsaleBook {
	return &CrowdsaleBook{
		active: make(map[string]*Crowdsale),
	}
}

// Insert registers an active crowdsale for issuer. It returns false when
// the issuer already runs one.
func (b *CrowdsaleBook) Insert(issuer string, c *Crowdsale) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.active[issuer]; ok {
		return false
	}
	if c.Database == nil {
		c.Database = make(map[common.Hash][4]int64)
	}
	b.active[issuer] = c
	return true
}

// Get returns the active crowdsale of issuer, or nil.
func (b *CrowdsaleBook) Get(issuer string) *Crowdsale {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active[issuer]
}

// Erase removes the crowdsale of issuer.
func (b *CrowdsaleBook) Erase(issuer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, issuer)
}

// Records converts the participation database into fundraiser records
// for folding into the property entry. The order is part of consensus
// state, so the records sort by block time and then txid.
func (c *Crowdsale) Records() []FundraiserRecord {
	records := make([]FundraiserRecord, 0, len(c.Database))
	for txid, row := range c.Database {
		records = append(records, FundraiserRecord{
			TxID:         txid,
			Amount:       row[0],
			BlockTime:    row[1],
			UserTokens:   row[2],
			IssuerTokens: row[3],
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].BlockTime != records[j].BlockTime {
			return records[i].BlockTime < records[j].BlockTime
		}
		return bytes.Compare(records[i].TxID[:], records[j].TxID[:]) < 0
	})
	return records
}

func (b *CrowdsaleBook) snapshot() map[string]*Crowdsale {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cp := make(map[string]*Crowdsale, len(b.active))
	for issuer, c := range b.active {
		cc := *c
		cc.Database = make(map[common.Hash][4]int64, len(c.Database))
		for k, v := range c.Database {
			cc.Database[k] = v
		}
		cp[issuer] = &cc
	}
	return cp
}

func (b *CrowdsaleBook) restore(active map[string]*Crowdsale) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active == nil {
		active = make(map[string]*Crowdsale)
	}
	b.active = active
}
