package consensus

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/tradelayer/go-tradelayer/envelope"
)

type restrictionKey struct {
	Type    envelope.Type
	Version uint16
}

// Alert is an operator notice stored until its expiry block.
type Alert struct {
	Sender    string
	AlertType uint16
	Expiry    uint32
	Text      string
}

// State is the runtime consensus gate. It owns a mutable copy of the
// network parameters and answers, per transaction:
//   - is this (type, version) pair enabled at this height
//   - is this feature activated at this height
//   - is this sender authorized for administrative transactions
//
// Feature activations rewrite the owned parameter copy; restriction
// lookups always reflect the latest activation state.
type State struct {
	mu sync.RWMutex

	params       Params
	restrictions map[restrictionKey]Restriction

	// lowest requested height per feature, kept so a later activation
	// cannot push a pending activation further out
	pending map[uint16]idx.Block

	alerts []Alert

	log *logrus.Entry
}

// NewState builds a gate from network parameters. The parameters are
// copied; later activations do not touch the caller's value.
func NewState(params Params) *State {
	s := &State{
		params:  params.Copy(),
		pending: make(map[uint16]idx.Block),
		log:     logrus.WithField("module", "consensus"),
	}
	s.rebuildRestrictions()
	return s
}

func (s *State) rebuildRestrictions() {
	table := make(map[restrictionKey]Restriction)
	for _, r := range s.params.Restrictions() {
		table[restrictionKey{r.Type, r.Version}] = r
	}
	s.restrictions = table
}

// Params returns a copy of the current parameters.
func (s *State) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Copy()
}

// IsTransactionTypeAllowed reports whether the (type, version) pair is
// enabled at the given block. Pairs outside the restriction table are
// never allowed.
func (s *State) IsTransactionTypeAllowed(block idx.Block, t envelope.Type, version uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.restrictions[restrictionKey{t, version}]
	if !ok {
		return false
	}
	return block >= r.ActivationBlock
}

// AllowsWildcard reports whether the (type, version) pair accepts a
// property identifier of zero.
func (s *State) AllowsWildcard(t envelope.Type, version uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.restrictions[restrictionKey{t, version}]
	return ok && r.AllowWildcard
}

// ActivateFeature schedules a feature to go live at activationBlock.
// The request fails when the feature id is unknown, when the requested
// height falls outside the notice window relative to txBlock, or when the
// activation demands a newer client than this one.
//
// An earlier pending activation for the same feature is never regressed:
// the lowest requested height wins.
func (s *State) ActivateFeature(featureID uint16, activationBlock idx.Block, minClientVersion uint32, txBlock idx.Block) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := s.params.featureHeight(featureID)
	if height == nil {
		s.log.WithField("feature", featureID).Warn("activation for unknown feature")
		return false
	}
	if activationBlock < txBlock+s.params.MinActivationBlocks ||
		activationBlock > txBlock+s.params.MaxActivationBlocks {
		s.log.WithFields(logrus.Fields{
			"feature": featureID,
			"height":  activationBlock,
			"tx":      txBlock,
		}).Warn("activation height outside notice window")
		return false
	}
	if minClientVersion > ClientVersion {
		s.log.WithFields(logrus.Fields{
			"feature":     featureID,
			"min_version": minClientVersion,
		}).Warn("activation requires newer client")
		return false
	}

	if prev, ok := s.pending[featureID]; ok && prev <= activationBlock {
		// an equal or earlier activation already stands
		return true
	}
	s.pending[featureID] = activationBlock
	*height = activationBlock
	s.rebuildRestrictions()

	s.log.WithFields(logrus.Fields{
		"feature": FeatureName(featureID),
		"height":  activationBlock,
	}).Info("feature activation scheduled")
	return true
}

// DeactivateFeature switches a feature off as of txBlock. There is no
// grace window. Authorization is the caller's responsibility.
func (s *State) DeactivateFeature(featureID uint16, txBlock idx.Block) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := s.params.featureHeight(featureID)
	if height == nil {
		return false
	}
	*height = NeverActivated
	delete(s.pending, featureID)
	s.rebuildRestrictions()

	s.log.WithFields(logrus.Fields{
		"feature": FeatureName(featureID),
		"block":   txBlock,
	}).Info("feature deactivated")
	return true
}

// IsFeatureActivated reports whether a feature is live at the given block.
func (s *State) IsFeatureActivated(featureID uint16, block idx.Block) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height := s.params.featureHeight(featureID)
	if height == nil {
		return false
	}
	return block >= *height
}

// IsActivationAuthorized reports whether sender may broadcast feature
// activations and deactivations. An empty admin set allows everyone
// (regression network).
func (s *State) IsActivationAuthorized(sender string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return addressAllowed(s.params.ActivationAdmins, sender)
}

// IsAlertAuthorized reports whether sender may broadcast operator alerts.
func (s *State) IsAlertAuthorized(sender string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return addressAllowed(s.params.AlertAdmins, sender)
}

func addressAllowed(admins []string, sender string) bool {
	if len(admins) == 0 {
		return true
	}
	for _, a := range admins {
		if a == sender {
			return true
		}
	}
	return false
}

// AddAlert records an operator alert.
func (s *State) AddAlert(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

// DeleteAlerts removes every alert broadcast by sender and returns how
// many were removed.
func (s *State) DeleteAlerts(sender string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	removed := 0
	for _, a := range s.alerts {
		if a.Sender == sender {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
	return removed
}

// Alerts returns the alerts still unexpired at the given block.
func (s *State) Alerts(block idx.Block) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var live []Alert
	for _, a := range s.alerts {
		if idx.Block(a.Expiry) > block {
			live = append(live, a)
		}
	}
	return live
}
