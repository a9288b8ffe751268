package state

import (
	"sync"
)

// KYCSelfAttested is the tier assigned by a self-attestation; registrars
// assign their own registrar id as the tier.
const KYCSelfAttested int64 = 0

// Registrar is an identity provider allowed to attest third parties.
type Registrar struct {
	Address     string
	Website     string
	CompanyName string
	// KYCID is the tier the registrar assigns to addresses it attests.
	KYCID int64
}

// Attestation records the compliance tier of one address.
type Attestation struct {
	Address string
	KYCID   int64
	Hash    string
}

// KYCBook stores registrars and address attestations.
type KYCBook struct {
	mu sync.RWMutex

	registrars   map[string]*Registrar
	attestations map[string]*Attestation
	nextKYCID    int64
}

// NewKYCBook returns an empty book. Registrar numbering starts at 1;
// tier 0 is reserved for self-attestation.
func NewKYCBook() *KYCBook {
	return &KYCBook{
		registrars:   make(map[string]*Registrar),
		attestations: make(map[string]*Attestation),
		nextKYCID:    KYCSelfAttested + 1,
	}
}

// RegisterRegistrar records a new identity provider and returns the tier
// id it will assign. It returns 0, false when the address is already
// registered.
func (b *KYCBook) RegisterRegistrar(address, website, companyName string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registrars[address]; ok {
		return 0, false
	}
	id := b.nextKYCID
	b.nextKYCID++
	b.registrars[address] = &Registrar{
		Address:     address,
		Website:     website,
		CompanyName: companyName,
		KYCID:       id,
	}
	return id, true
}

// IsRegistrar reports whether the address is a recognized identity
// provider.
func (b *KYCBook) IsRegistrar(address string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.registrars[address]
	return ok
}

// Registrar returns the registrar record of an address.
func (b *KYCBook) Registrar(address string) (Registrar, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.registrars[address]
	if !ok {
		return Registrar{}, false
	}
	return *r, true
}

// MoveRegistrar hands a registrar record from one address to another,
// keeping its tier id.
func (b *KYCBook) MoveRegistrar(from, to string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.registrars[from]
	if !ok || to == "" {
		return false
	}
	if _, taken := b.registrars[to]; taken {
		return false
	}
	delete(b.registrars, from)
	r.Address = to
	b.registrars[to] = r
	return true
}

// Attest records the compliance tier of an address, replacing any
// earlier attestation.
func (b *KYCBook) Attest(address string, kycID int64, hash string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attestations[address] = &Attestation{Address: address, KYCID: kycID, Hash: hash}
}

// CheckAttestation returns the tier of an address. ok is false when the
// address was never attested.
func (b *KYCBook) CheckAttestation(address string) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.attestations[address]
	if !ok {
		return 0, false
	}
	return a.KYCID, true
}

// Matches reports whether a tier satisfies a property's whitelist. An
// empty whitelist admits every attested address.
func Matches(whitelist []int64, kycID int64) bool {
	if len(whitelist) == 0 {
		return true
	}
	for _, id := range whitelist {
		if id == kycID {
			return true
		}
	}
	return false
}

type kycSnapshot struct {
	Registrars   map[string]*Registrar
	Attestations map[string]*Attestation
	NextKYCID    int64
}

func (b *KYCBook) snapshot() kycSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := kycSnapshot{
		Registrars:   make(map[string]*Registrar, len(b.registrars)),
		Attestations: make(map[string]*Attestation, len(b.attestations)),
		NextKYCID:    b.nextKYCID,
	}
	for k, r := range b.registrars {
		cp := *r
		snap.Registrars[k] = &cp
	}
	for k, a := range b.attestations {
		cp := *a
		snap.Attestations[k] = &cp
	}
	return snap
}

func (b *KYCBook) restore(snap kycSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap.Registrars == nil {
		snap.Registrars = make(map[string]*Registrar)
	}
	if snap.Attestations == nil {
		snap.Attestations = make(map[string]*Attestation)
	}
	if snap.NextKYCID <= KYCSelfAttested {
		snap.NextKYCID = KYCSelfAttested + 1
	}
	b.registrars = snap.Registrars
	b.attestations = snap.Attestations
	b.nextKYCID = snap.NextKYCID
}
