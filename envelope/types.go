// Package envelope defines the typed transaction envelopes of the overlay
// protocol and the per-type payload decoders producing them.
//
// This package provides:
//   - Transaction type identifiers (Type) for every supported kind
//   - Meta, the fields shared by every transaction regardless of kind
//   - One envelope struct per transaction kind, holding exactly the fields
//     that kind carries on the wire
//   - A decode table mapping a type identifier to its payload decoder
//
// Envelopes are constructed from raw bytes at decode time and read-only
// afterwards, except for the Value/NewValue echo fields on Meta which
// handlers use to report computed results back to the caller.
package envelope

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Type identifies a transaction kind on the wire.
type Type uint16

// Transaction type identifiers.
const (
	TypeSimpleSend            Type = 0
	TypeSendAll               Type = 4
	TypeSendVesting           Type = 5
	TypeTradeOffer            Type = 20
	TypeDExBuyOffer           Type = 21
	TypeAcceptOfferBTC        Type = 22
	TypeMetaDExTrade          Type = 25
	TypeContractDexTrade      Type = 29
	TypeCancelEcosystem       Type = 32
	TypeClosePosition         Type = 33
	TypeCancelOrdersByBlock   Type = 34
	TypeCreateContract        Type = 40
	TypeCreatePropertyFixed   Type = 50
	TypeCreatePropertyVar     Type = 51
	TypeCloseCrowdsale        Type = 53
	TypeCreatePropertyManaged Type = 54
	TypeGrantTokens           Type = 55
	TypeRevokeTokens          Type = 56
	TypeChangeIssuer          Type = 70
	TypeCreatePegged          Type = 100
	TypeSendPegged            Type = 101
	TypeRedeemPegged          Type = 102
	TypeCreateOracleContract  Type = 103
	TypeChangeOracleRef       Type = 104
	TypeSetOracle             Type = 105
	TypeOracleBackup          Type = 106
	TypeCloseOracle           Type = 107
	TypeCommitChannel         Type = 108
	TypeWithdrawalFromChannel Type = 109
	TypeInstantTrade          Type = 110
	TypeUpdatePNL             Type = 111
	TypeTransfer              Type = 112
	TypeCreateChannel         Type = 113
	TypeContractInstant       Type = 114
	TypeNewIdRegistration     Type = 115
	TypeUpdateIdRegistration  Type = 116
	TypeDExPayment            Type = 117
	TypeAttestation           Type = 118
	TypeDeactivation          Type = 65533
	TypeActivation            Type = 65534
	TypeAlert                 Type = 65535
)

// Trading actions for contract trades.
const (
	ActionBuy  = 1
	ActionSell = 2
)

// Sub-actions for versioned DEx offers.
const (
	SubActionNew    = 1
	SubActionUpdate = 2
	SubActionCancel = 3
)

// Fixed destination capacities for NUL-terminated string fields.
// Longer source runs truncate at capacity-1.
const (
	MaxNameLen      = 256
	MaxURLLen       = 256
	MaxDataLen      = 256
	MaxAlertTextLen = 256
	MaxAddressLen   = 128
	MaxHashLen      = 128
)

// Meta carries the fields present on every transaction: the type
// discriminant read from the payload, and the chain context supplied by
// the block-connection driver.
type Meta struct {
	Version uint16
	Type    Type

	Sender   string
	Receiver string

	Block     idx.Block
	BlockTime int64
	TxIdx     uint32
	TxID      common.Hash

	// Payload is the raw packet; len(Payload) is the declared packet size.
	Payload []byte

	// Value and NewValue echo computed results back to the caller.
	// They are the only fields a handler may mutate.
	Value    int64
	NewValue int64
}

// Envelope is the sealed sum type over all transaction kinds.
// Concrete envelope structs embed Meta and implement Header/TxType.
type Envelope interface {
	// TxType returns the kind discriminant of this envelope.
	TxType() Type
	// Header returns the shared transaction fields.
	Header() *Meta
}

// Header implements Envelope for every struct embedding Meta.
func (m *Meta) Header() *Meta { return m }

// SimpleSend moves an amount of one property between available balances.
// An empty receiver means send-to-self.
type SimpleSend struct {
	Meta
	Property uint32
	Amount   int64
}

func (*SimpleSend) TxType() Type { return TypeSimpleSend }

// SendAll moves the sender's entire available balance of every property
// to the receiver. It has no body fields.
type SendAll struct {
	Meta
}

func (*SendAll) TxType() Type { return TypeSendAll }

// SendVesting moves vesting tokens and credits an equal unvested
// allocation of the base property to the receiver.
type SendVesting struct {
	Meta
	Amount int64
}

func (*SendVesting) TxType() Type { return TypeSendVesting }

// CreatePropertyFixed issues a fixed-supply token credited in full to the
// issuer.
type CreatePropertyFixed struct {
	Meta
	PropType   uint16
	PrevPropID uint32
	Name       string
	URL        string
	Data       string
	Amount     int64
}

func (*CreatePropertyFixed) TxType() Type { return TypeCreatePropertyFixed }

// CreatePropertyVariable issues a crowdsale-funded token. The crowdsale is
// keyed by the issuer address while active.
type CreatePropertyVariable struct {
	Meta
	PropType        uint16
	PrevPropID      uint32
	Name            string
	URL             string
	Data            string
	DesiredProperty uint32
	TokensPerUnit   int64
	Deadline        int64
	EarlyBird       uint8
	Percentage      uint8
}

func (*CreatePropertyVariable) TxType() Type { return TypeCreatePropertyVar }

// CloseCrowdsale closes the sender's active crowdsale for a property.
type CloseCrowdsale struct {
	Meta
	Property uint32
}

func (*CloseCrowdsale) TxType() Type { return TypeCloseCrowdsale }

// CreatePropertyManaged issues a zero-supply, issuer-mintable token with
// an attached KYC whitelist.
type CreatePropertyManaged struct {
	Meta
	PropType   uint16
	PrevPropID uint32
	Name       string
	URL        string
	Data       string
	KYCIDs     []int64
}

func (*CreatePropertyManaged) TxType() Type { return TypeCreatePropertyManaged }

// GrantTokens mints tokens of a managed property to the receiver.
// An empty receiver means grant-to-self.
type GrantTokens struct {
	Meta
	Property uint32
	Amount   int64
}

func (*GrantTokens) TxType() Type { return TypeGrantTokens }

// RevokeTokens burns tokens of a managed property from the sender.
type RevokeTokens struct {
	Meta
	Property uint32
	Amount   int64
}

func (*RevokeTokens) TxType() Type { return TypeRevokeTokens }

// ChangeIssuer transfers issuer control of a property to the receiver.
type ChangeIssuer struct {
	Meta
	Property uint32
}

func (*ChangeIssuer) TxType() Type { return TypeChangeIssuer }

// TradeOffer places, updates or cancels a DEx sell offer.
// Version 0 infers the sub-action from the offered amount.
type TradeOffer struct {
	Meta
	Property      uint32
	AmountForSale int64
	AmountDesired int64
	TimeLimit     uint8
	MinFee        int64
	SubAction     uint8
}

func (*TradeOffer) TxType() Type { return TypeTradeOffer }

// DExBuyOffer places, updates or cancels a DEx buy offer at an effective
// price.
type DExBuyOffer struct {
	Meta
	Property      uint32
	AmountForSale int64
	Price         int64
	TimeLimit     uint8
	MinFee        int64
	SubAction     uint8
}

func (*DExBuyOffer) TxType() Type { return TypeDExBuyOffer }

// AcceptOfferBTC accepts a resting DEx offer settled in the base asset.
type AcceptOfferBTC struct {
	Meta
	Property uint32
	Amount   int64
}

func (*AcceptOfferBTC) TxType() Type { return TypeAcceptOfferBTC }

// MetaDExTrade places a token-for-token order with the spot matcher.
type MetaDExTrade struct {
	Meta
	Property        uint32
	AmountForSale   int64
	DesiredProperty uint32
	DesiredValue    int64
}

func (*MetaDExTrade) TxType() Type { return TypeMetaDExTrade }

// CreateContract registers a native futures contract. A zero
// blocks-until-expiration selects the perpetual variant.
type CreateContract struct {
	Meta
	Numerator             uint32
	Denominator           uint32
	Name                  string
	BlocksUntilExpiration uint32
	NotionalSize          uint64
	CollateralCurrency    uint32
	MarginRequirement     uint64
	InverseQuoted         bool
	KYCIDs                []int64
}

func (*CreateContract) TxType() Type { return TypeCreateContract }

// ContractDexTrade places a leveraged order on a futures contract,
// identified by name.
type ContractDexTrade struct {
	Meta
	ContractName   string
	Amount         int64
	EffectivePrice uint64
	TradingAction  uint8
	Leverage       uint64
}

func (*ContractDexTrade) TxType() Type { return TypeContractDexTrade }

// CancelEcosystem cancels every order of the sender on a contract.
type CancelEcosystem struct {
	Meta
	ContractID uint32
}

func (*CancelEcosystem) TxType() Type { return TypeCancelEcosystem }

// ClosePosition closes the sender's position on a contract.
type ClosePosition struct {
	Meta
	ContractID uint32
}

func (*ClosePosition) TxType() Type { return TypeClosePosition }

// CancelOrdersByBlock cancels the order placed at a given (block, index).
type CancelOrdersByBlock struct {
	Meta
	TargetBlock idx.Block
	TargetIdx   uint32
}

func (*CancelOrdersByBlock) TxType() Type { return TypeCancelOrdersByBlock }

// CreatePegged mints pegged currency against locked short contract
// exposure and collateral.
type CreatePegged struct {
	Meta
	PropType   uint16
	PrevPropID uint32
	Name       string
	Property   uint32
	ContractID uint32
	Amount     int64
}

func (*CreatePegged) TxType() Type { return TypeCreatePegged }

// SendPegged moves pegged currency between available balances.
type SendPegged struct {
	Meta
	Property uint32
	Amount   int64
}

func (*SendPegged) TxType() Type { return TypeSendPegged }

// RedeemPegged burns pegged currency and releases the locked collateral
// and contract exposure.
type RedeemPegged struct {
	Meta
	Property   uint32
	ContractID uint32
	Amount     int64
}

func (*RedeemPegged) TxType() Type { return TypeRedeemPegged }

// CreateOracleContract registers an oracle-settled futures contract.
// Sender is the oracle address; receiver is the backup address.
type CreateOracleContract struct {
	Meta
	Name                  string
	BlocksUntilExpiration uint32
	NotionalSize          uint64
	CollateralCurrency    uint32
	MarginRequirement     uint64
	InverseQuoted         bool
	KYCIDs                []int64
}

func (*CreateOracleContract) TxType() Type { return TypeCreateOracleContract }

// ChangeOracleRef hands the oracle role of a contract to the receiver.
type ChangeOracleRef struct {
	Meta
	ContractID uint32
}

func (*ChangeOracleRef) TxType() Type { return TypeChangeOracleRef }

// SetOracle appends a (high, low, close) price point for a contract at
// the current block.
type SetOracle struct {
	Meta
	ContractID uint32
	High       uint64
	Low        uint64
	Close      uint64
}

func (*SetOracle) TxType() Type { return TypeSetOracle }

// OracleBackup lets the backup address take over the oracle role.
type OracleBackup struct {
	Meta
	ContractID uint32
}

func (*OracleBackup) TxType() Type { return TypeOracleBackup }

// CloseOracle retires an oracle contract.
type CloseOracle struct {
	Meta
	ContractID uint32
}

func (*CloseOracle) TxType() Type { return TypeCloseOracle }

// CommitChannel moves funds from the sender's available balance into a
// channel's reserve. Receiver is the channel multisig address.
type CommitChannel struct {
	Meta
	Property uint32
	Amount   int64
	Vout     uint64
}

func (*CommitChannel) TxType() Type { return TypeCommitChannel }

// WithdrawalFromChannel queues a pending withdrawal from a channel's
// reserve, bounded by the sender's remaining entitlement.
type WithdrawalFromChannel struct {
	Meta
	Property uint32
	Amount   int64
	Vout     uint64
}

func (*WithdrawalFromChannel) TxType() Type { return TypeWithdrawalFromChannel }

// InstantTrade settles a token-for-token exchange between the two channel
// counterparties out of channel reserve.
type InstantTrade struct {
	Meta
	Property        uint32
	AmountForSale   int64
	BlockForExpiry  idx.Block
	DesiredProperty uint32
	DesiredValue    int64
}

func (*InstantTrade) TxType() Type { return TypeInstantTrade }

// UpdatePNL settles realized profit and loss out of channel reserve.
type UpdatePNL struct {
	Meta
	Property uint32
	Amount   int64
}

func (*UpdatePNL) TxType() Type { return TypeUpdatePNL }

// Transfer moves channel reserve between the two channel addresses.
type Transfer struct {
	Meta
	Property uint32
	Amount   int64
}

func (*Transfer) TxType() Type { return TypeTransfer }

// CreateChannel registers a two-party trade channel backed by a multisig
// address, expiring a fixed number of blocks ahead.
type CreateChannel struct {
	Meta
	ChannelAddress    string
	BlocksUntilExpiry idx.Block
}

func (*CreateChannel) TxType() Type { return TypeCreateChannel }

// ContractInstant settles a leveraged contract trade between the channel
// counterparties.
type ContractInstant struct {
	Meta
	Contract       uint32
	Amount         int64
	BlockForExpiry idx.Block
	Price          uint64
	TradingAction  uint8
	Leverage       uint64
}

func (*ContractInstant) TxType() Type { return TypeContractInstant }

// NewIdRegistration registers the sender as a KYC registrar.
type NewIdRegistration struct {
	Meta
	Website     string
	CompanyName string
}

func (*NewIdRegistration) TxType() Type { return TypeNewIdRegistration }

// UpdateIdRegistration reassigns a registrar record to the receiver.
// It has no body fields.
type UpdateIdRegistration struct {
	Meta
}

func (*UpdateIdRegistration) TxType() Type { return TypeUpdateIdRegistration }

// DExPayment settles a base-asset payment for an accepted DEx offer.
// It has no body fields.
type DExPayment struct {
	Meta
}

func (*DExPayment) TxType() Type { return TypeDExPayment }

// Attestation records a KYC tier for the receiver. Self-registration only,
// unless the sender is a recognized registrar.
type Attestation struct {
	Meta
	Hash string
}

func (*Attestation) TxType() Type { return TypeAttestation }

// Deactivation disables a consensus feature immediately.
type Deactivation struct {
	Meta
	FeatureID uint16
}

func (*Deactivation) TxType() Type { return TypeDeactivation }

// Activation schedules a consensus feature to activate at a future block.
type Activation struct {
	Meta
	FeatureID        uint16
	ActivationBlock  idx.Block
	MinClientVersion uint32
}

func (*Activation) TxType() Type { return TypeActivation }

// Alert broadcasts an operator alert. AlertType 0xFFFF clears the
// sender's alerts instead of adding one.
type Alert struct {
	Meta
	AlertType   uint16
	AlertExpiry uint32
	AlertText   string
}

func (*Alert) TxType() Type { return TypeAlert }
