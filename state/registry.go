package state

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Property types.
const (
	PropertyTypeIndivisible        uint16 = 1
	PropertyTypeDivisible          uint16 = 2
	PropertyTypeNativeContract     uint16 = 3
	PropertyTypeVesting            uint16 = 4
	PropertyTypePegged             uint16 = 5
	PropertyTypeOracleContract     uint16 = 6
	PropertyTypePerpetualOracle    uint16 = 7
	PropertyTypePerpetualContracts uint16 = 8
)

// Reserved property ids.
const (
	// PropertyALL is the native token of the layer.
	PropertyALL uint32 = 1
	// PropertyVesting vests into PropertyALL over time.
	PropertyVesting uint32 = 2
)

// GrantRecord is one supply change of a managed property: the granting
// or revoking transaction and the two deltas (granted, revoked).
type GrantRecord struct {
	TxID    common.Hash
	Granted int64
	Revoked int64
}

// FundraiserRecord is one crowdsale participation folded into the
// property entry when the crowdsale ends.
type FundraiserRecord struct {
	TxID         common.Hash
	Amount       int64
	BlockTime    int64
	UserTokens   int64
	IssuerTokens int64
}

// Property is one registry entry: a token, a crowdsale-funded token, a
// futures contract or a pegged currency, discriminated by PropType.
type Property struct {
	ID     uint32
	Issuer string
	TxID   common.Hash

	PropType   uint16
	PrevPropID uint32
	Name       string
	URL        string
	Data       string

	// NumTokens is the issued supply; for a crowdsale entry it is the
	// token-per-unit rate until the crowdsale closes.
	NumTokens int64

	// Fixed marks a fixed-supply issue, Manual an issuer-mintable one.
	Fixed  bool
	Manual bool

	// Crowdsale terms, set when Fixed and Manual are both false.
	DesiredProperty uint32
	Deadline        int64
	EarlyBird       uint8
	Percentage      uint8
	CloseEarly      bool
	MaxTokens       bool
	MissedTokens    int64
	CloseTx         common.Hash
	History         []FundraiserRecord

	// Supply changes of a managed property.
	Grants []GrantRecord

	// Contract terms, set for the contract property types.
	InitBlock             idx.Block
	BlocksUntilExpiration uint32
	Numerator             uint32
	Denominator           uint32
	NotionalSize          uint64
	CollateralCurrency    uint32
	MarginRequirement     uint64
	InverseQuoted         bool

	// Oracle addresses, set for the oracle contract types.
	BackupAddress string

	// Pegged currency linkage.
	ContractID uint32
	Series     string

	// Addresses allowed to transact the property; empty means anyone.
	KYCIDs []int64

	CreationBlock common.Hash
	UpdateBlock   common.Hash
}

// IsContract reports whether the entry is a derivatives contract.
func (p *Property) IsContract() bool {
	switch p.PropType {
	case PropertyTypeNativeContract, PropertyTypeOracleContract,
		PropertyTypePerpetualOracle, PropertyTypePerpetualContracts:
		return true
	}
	return false
}

// IsOracle reports whether the entry is an oracle-settled contract.
func (p *Property) IsOracle() bool {
	return p.PropType == PropertyTypeOracleContract || p.PropType == PropertyTypePerpetualOracle
}

// IsDivisible reports whether amounts of the property carry 1e8 units.
func (p *Property) IsDivisible() bool {
	return p.PropType != PropertyTypeIndivisible
}

// Registry stores property entries under ascending ids.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint32]*Property
	nextID  uint32
}

// NewRegistry returns a registry seeded with the reserved native and
// vesting entries, so the first user issuance allocates the id after
// PropertyVesting.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[uint32]*Property),
		nextID:  PropertyALL,
	}
	r.Put(&Property{
		PropType: PropertyTypeDivisible,
		Name:     "ALL",
		Data:     "native token",
		Fixed:    true,
	})
	r.Put(&Property{
		PropType: PropertyTypeVesting,
		Name:     "ALL Vesting",
		Data:     "vests into ALL",
		Fixed:    true,
	})
	return r
}

// NextID returns the id the next Put will allocate.
func (r *Registry) NextID() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// Put allocates an id for the entry and stores it.
func (r *Registry) Put(p *Property) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.entries[p.ID] = &cp
	return p.ID
}

// Get returns a copy of the entry, or false when the id is unknown.
func (r *Registry) Get(id uint32) (Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.entries[id]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// Exists reports whether the id names a stored entry.
func (r *Registry) Exists(id uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Update replaces a stored entry. The id must exist.
func (r *Registry) Update(id uint32, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("registry: no entry %d", id)
	}
	cp := *p
	cp.ID = id
	r.entries[id] = &cp
	return nil
}

// FindContractByName returns the contract entry with the given name.
func (r *Registry) FindContractByName(name string) (Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := PropertyALL; id < r.nextID; id++ {
		p, ok := r.entries[id]
		if ok && p.IsContract() && p.Name == name {
			return *p, true
		}
	}
	return Property{}, false
}

// FindPeggedByDenominator returns the pegged currency entry whose backing
// contract denominator matches, if any.
func (r *Registry) FindPeggedByDenominator(denominator uint32) (Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := PropertyALL; id < r.nextID; id++ {
		p, ok := r.entries[id]
		if ok && p.PropType == PropertyTypePegged && p.Denominator == denominator {
			return *p, true
		}
	}
	return Property{}, false
}

func (r *Registry) snapshot() (map[uint32]*Property, uint32) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := make(map[uint32]*Property, len(r.entries))
	for id, p := range r.entries {
		c := *p
		cp[id] = &c
	}
	return cp, r.nextID
}

func (r *Registry) restore(entries map[uint32]*Property, nextID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entries == nil {
		entries = make(map[uint32]*Property)
	}
	if nextID < PropertyALL {
		nextID = PropertyALL
	}
	r.entries = entries
	r.nextID = nextID
}
