// Package consensus holds the per-network protocol parameters and the
// runtime gate deciding which transactions are live.
//
// This package provides:
//   - Feature identifiers for every switchable protocol capability
//   - Params, the per-network parameter set (activation heights, notice
//     windows, administrative address sets)
//   - Constructors for the main, test and regression networks
//   - State, the mutable gate answering type/version/height and feature
//     activation questions (gate.go)
package consensus

import (
	"encoding/json"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/tradelayer/go-tradelayer/envelope"
)

// Feature identifiers for switchable protocol capabilities.
const (
	FeatureVesting               uint16 = 1
	FeatureKYC                   uint16 = 2
	FeatureDExSell               uint16 = 3
	FeatureDExBuy                uint16 = 4
	FeatureMetaDEx               uint16 = 5
	FeatureTradeChannelTokens    uint16 = 6
	FeatureTradeChannelContracts uint16 = 7
	FeatureFixedIssuance         uint16 = 8
	FeatureManagedIssuance       uint16 = 9
	FeatureNodeReward            uint16 = 10
)

// ClientVersion is compared against the minimum client version carried by
// activation transactions.
const ClientVersion uint32 = 2

// NeverActivated is the height assigned to a feature that is switched off.
// No reachable block is ever >= it.
const NeverActivated idx.Block = idx.Block(1<<63 - 1)

const (
	MainNetName = "main"
	TestNetName = "test"
	RegTestName = "regtest"
)

// Restriction pins one (type, version) pair to the block after which it is
// enabled. Pairs absent from the table are never permitted.
type Restriction struct {
	Type    envelope.Type
	Version uint16
	// AllowWildcard permits a property identifier of zero.
	AllowWildcard bool
	// ActivationBlock is the first block at which the pair is live.
	ActivationBlock idx.Block
}

// Params describes the consensus parameters of one network.
type Params struct {
	Name string

	// GenesisBlock is the first block processed by the overlay.
	GenesisBlock idx.Block

	// MinActivationBlocks and MaxActivationBlocks bound the notice window
	// of a feature activation: the requested height must fall within
	// [current+Min, current+Max].
	MinActivationBlocks idx.Block
	MaxActivationBlocks idx.Block

	// Per-capability activation heights. A feature activation transaction
	// rewrites the matching height at runtime.
	AlertBlock                 idx.Block
	SendBlock                  idx.Block
	SendAllBlock               idx.Block
	PropertyBlock              idx.Block
	ManagedPropertyBlock       idx.Block
	VestingBlock               idx.Block
	KYCBlock                   idx.Block
	MetaDExBlock               idx.Block
	DExSellBlock               idx.Block
	DExBuyBlock                idx.Block
	ContractDExBlock           idx.Block
	OracleContractBlock        idx.Block
	NodeRewardBlock            idx.Block
	TradeChannelTokensBlock    idx.Block
	TradeChannelContractsBlock idx.Block

	// ActivationAdmins may broadcast feature activations and deactivations.
	// AlertAdmins may broadcast operator alerts.
	ActivationAdmins []string
	AlertAdmins      []string
}

// MainNetParams returns the consensus parameters of the production network.
func MainNetParams() Params {
	return Params{
		Name: MainNetName,

		GenesisBlock: 100,

		MinActivationBlocks: 2048,  // ~2 weeks
		MaxActivationBlocks: 12288, // ~12 weeks

		AlertBlock:                 100,
		SendBlock:                  100,
		SendAllBlock:               100,
		PropertyBlock:              100,
		ManagedPropertyBlock:       100,
		VestingBlock:               100,
		KYCBlock:                   NeverActivated,
		MetaDExBlock:               NeverActivated,
		DExSellBlock:               NeverActivated,
		DExBuyBlock:                NeverActivated,
		ContractDExBlock:           NeverActivated,
		OracleContractBlock:        NeverActivated,
		NodeRewardBlock:            NeverActivated,
		TradeChannelTokensBlock:    NeverActivated,
		TradeChannelContractsBlock: NeverActivated,

		ActivationAdmins: []string{
			"QgrK4uZyTbTDfGKa68VVXWnN9BrEzuPcjF",
		},
		AlertAdmins: []string{
			"QgrK4uZyTbTDfGKa68VVXWnN9BrEzuPcjF",
		},
	}
}

// TestNetParams returns the consensus parameters of the public test network.
// Everything is live from genesis.
func TestNetParams() Params {
	return Params{
		Name: TestNetName,

		GenesisBlock: 1,

		MinActivationBlocks: 0,
		MaxActivationBlocks: 999999,

		AlertBlock:                 1,
		SendBlock:                  1,
		SendAllBlock:               1,
		PropertyBlock:              1,
		ManagedPropertyBlock:       1,
		VestingBlock:               1,
		KYCBlock:                   1,
		MetaDExBlock:               1,
		DExSellBlock:               1,
		DExBuyBlock:                1,
		ContractDExBlock:           1,
		OracleContractBlock:        1,
		NodeRewardBlock:            1,
		TradeChannelTokensBlock:    1,
		TradeChannelContractsBlock: 1,

		ActivationAdmins: []string{
			"tQLayerTestAdminzzzzzzzzzzzzzzzzzz",
		},
		AlertAdmins: []string{
			"tQLayerTestAdminzzzzzzzzzzzzzzzzzz",
		},
	}
}

// RegTestParams returns the consensus parameters of the local regression
// network. Any sender is an administrator.
func RegTestParams() Params {
	p := TestNetParams()
	p.Name = RegTestName
	p.ActivationAdmins = nil
	p.AlertAdmins = nil
	return p
}

// Copy returns a deep copy of the parameters.
func (p Params) Copy() Params {
	cp := p
	cp.ActivationAdmins = append([]string(nil), p.ActivationAdmins...)
	cp.AlertAdmins = append([]string(nil), p.AlertAdmins...)
	return cp
}

func (p Params) String() string {
	b, _ := json.Marshal(&p)
	return string(b)
}

// Restrictions derives the (type, version) restriction table from the
// current activation heights. The table is rebuilt after every feature
// activation or deactivation.
func (p *Params) Restrictions() []Restriction {
	return []Restriction{
		{envelope.TypeAlert, 0, true, p.AlertBlock},
		{envelope.TypeActivation, 0, true, p.GenesisBlock},
		{envelope.TypeDeactivation, 0, true, p.GenesisBlock},

		{envelope.TypeSimpleSend, 0, false, p.SendBlock},
		{envelope.TypeSendAll, 0, true, p.SendAllBlock},
		{envelope.TypeSendVesting, 0, false, p.VestingBlock},

		{envelope.TypeCreatePropertyFixed, 0, true, p.PropertyBlock},
		{envelope.TypeCreatePropertyVar, 0, true, p.PropertyBlock},
		{envelope.TypeCreatePropertyVar, 1, true, p.PropertyBlock},
		{envelope.TypeCloseCrowdsale, 0, false, p.PropertyBlock},
		{envelope.TypeCreatePropertyManaged, 0, true, p.ManagedPropertyBlock},
		{envelope.TypeGrantTokens, 0, false, p.ManagedPropertyBlock},
		{envelope.TypeRevokeTokens, 0, false, p.ManagedPropertyBlock},
		{envelope.TypeChangeIssuer, 0, false, p.ManagedPropertyBlock},

		{envelope.TypeTradeOffer, 0, false, p.DExSellBlock},
		{envelope.TypeTradeOffer, 1, false, p.DExSellBlock},
		{envelope.TypeDExBuyOffer, 0, false, p.DExBuyBlock},
		{envelope.TypeAcceptOfferBTC, 0, false, p.DExSellBlock},
		{envelope.TypeDExPayment, 0, true, p.DExSellBlock},

		{envelope.TypeMetaDExTrade, 0, false, p.MetaDExBlock},
		{envelope.TypeCancelOrdersByBlock, 0, true, p.MetaDExBlock},

		{envelope.TypeCreateContract, 0, true, p.ContractDExBlock},
		{envelope.TypeContractDexTrade, 0, false, p.ContractDExBlock},
		{envelope.TypeCancelEcosystem, 0, true, p.ContractDExBlock},
		{envelope.TypeClosePosition, 0, true, p.ContractDExBlock},
		{envelope.TypeCreatePegged, 0, false, p.ContractDExBlock},
		{envelope.TypeSendPegged, 0, false, p.ContractDExBlock},
		{envelope.TypeRedeemPegged, 0, false, p.ContractDExBlock},

		{envelope.TypeCreateOracleContract, 0, true, p.OracleContractBlock},
		{envelope.TypeChangeOracleRef, 0, false, p.OracleContractBlock},
		{envelope.TypeSetOracle, 0, false, p.OracleContractBlock},
		{envelope.TypeOracleBackup, 0, false, p.OracleContractBlock},
		{envelope.TypeCloseOracle, 0, false, p.OracleContractBlock},

		{envelope.TypeCommitChannel, 0, false, p.TradeChannelTokensBlock},
		{envelope.TypeWithdrawalFromChannel, 0, false, p.TradeChannelTokensBlock},
		{envelope.TypeInstantTrade, 0, false, p.TradeChannelTokensBlock},
		{envelope.TypeUpdatePNL, 0, false, p.TradeChannelTokensBlock},
		{envelope.TypeTransfer, 0, false, p.TradeChannelTokensBlock},
		{envelope.TypeCreateChannel, 0, true, p.TradeChannelTokensBlock},
		{envelope.TypeContractInstant, 0, false, p.TradeChannelContractsBlock},

		{envelope.TypeNewIdRegistration, 0, true, p.KYCBlock},
		{envelope.TypeUpdateIdRegistration, 0, true, p.KYCBlock},
		{envelope.TypeAttestation, 0, true, p.KYCBlock},
	}
}

// featureHeight returns a pointer to the parameter field governed by a
// feature identifier, or nil for unknown features.
func (p *Params) featureHeight(featureID uint16) *idx.Block {
	switch featureID {
	case FeatureVesting:
		return &p.VestingBlock
	case FeatureKYC:
		return &p.KYCBlock
	case FeatureDExSell:
		return &p.DExSellBlock
	case FeatureDExBuy:
		return &p.DExBuyBlock
	case FeatureMetaDEx:
		return &p.MetaDExBlock
	case FeatureTradeChannelTokens:
		return &p.TradeChannelTokensBlock
	case FeatureTradeChannelContracts:
		return &p.TradeChannelContractsBlock
	case FeatureFixedIssuance:
		return &p.PropertyBlock
	case FeatureManagedIssuance:
		return &p.ManagedPropertyBlock
	case FeatureNodeReward:
		return &p.NodeRewardBlock
	default:
		return nil
	}
}

// FeatureName returns the display name of a feature identifier.
func FeatureName(featureID uint16) string {
	switch featureID {
	case FeatureVesting:
		return "Vesting tokens"
	case FeatureKYC:
		return "KYC and identity registration"
	case FeatureDExSell:
		return "DEx sell offers"
	case FeatureDExBuy:
		return "DEx buy offers"
	case FeatureMetaDEx:
		return "Token-for-token trading"
	case FeatureTradeChannelTokens:
		return "Trade channels for tokens"
	case FeatureTradeChannelContracts:
		return "Trade channels for contracts"
	case FeatureFixedIssuance:
		return "Fixed and crowdsale issuance"
	case FeatureManagedIssuance:
		return "Managed issuance"
	case FeatureNodeReward:
		return "Node reward"
	default:
		return "Unknown feature"
	}
}
