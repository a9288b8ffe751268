package envelope

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/tradelayer/go-tradelayer/packet"
)

// Decode errors.
var (
	// ErrUnknownType reports a payload whose type discriminant has no
	// registered decoder. The transaction has no further effect.
	ErrUnknownType = errors.New("unknown transaction type")
)

// decoder reads the body fields of one transaction kind. The cursor is
// positioned just past the version and type varints; version is available
// on meta for kinds whose layout varies by version.
type decoder func(c *packet.Cursor, meta Meta) Envelope

// decodeTable maps a type discriminant to its body decoder. Decoding one
// type never touches fields of another type.
var decodeTable = map[Type]decoder{
	TypeSimpleSend:            decodeSimpleSend,
	TypeSendAll:               decodeSendAll,
	TypeSendVesting:           decodeSendVesting,
	TypeTradeOffer:            decodeTradeOffer,
	TypeDExBuyOffer:           decodeDExBuyOffer,
	TypeAcceptOfferBTC:        decodeAcceptOfferBTC,
	TypeMetaDExTrade:          decodeMetaDExTrade,
	TypeContractDexTrade:      decodeContractDexTrade,
	TypeCancelEcosystem:       decodeCancelEcosystem,
	TypeClosePosition:         decodeClosePosition,
	TypeCancelOrdersByBlock:   decodeCancelOrdersByBlock,
	TypeCreateContract:        decodeCreateContract,
	TypeCreatePropertyFixed:   decodeCreatePropertyFixed,
	TypeCreatePropertyVar:     decodeCreatePropertyVariable,
	TypeCloseCrowdsale:        decodeCloseCrowdsale,
	TypeCreatePropertyManaged: decodeCreatePropertyManaged,
	TypeGrantTokens:           decodeGrantTokens,
	TypeRevokeTokens:          decodeRevokeTokens,
	TypeChangeIssuer:          decodeChangeIssuer,
	TypeCreatePegged:          decodeCreatePegged,
	TypeSendPegged:            decodeSendPegged,
	TypeRedeemPegged:          decodeRedeemPegged,
	TypeCreateOracleContract:  decodeCreateOracleContract,
	TypeChangeOracleRef:       decodeContractRef(TypeChangeOracleRef),
	TypeSetOracle:             decodeSetOracle,
	TypeOracleBackup:          decodeContractRef(TypeOracleBackup),
	TypeCloseOracle:           decodeContractRef(TypeCloseOracle),
	TypeCommitChannel:         decodeCommitChannel,
	TypeWithdrawalFromChannel: decodeWithdrawalFromChannel,
	TypeInstantTrade:          decodeInstantTrade,
	TypeUpdatePNL:             decodeUpdatePNL,
	TypeTransfer:              decodeTransfer,
	TypeCreateChannel:         decodeCreateChannel,
	TypeContractInstant:       decodeContractInstant,
	TypeNewIdRegistration:     decodeNewIdRegistration,
	TypeUpdateIdRegistration:  decodeUpdateIdRegistration,
	TypeDExPayment:            decodeDExPayment,
	TypeAttestation:           decodeAttestation,
	TypeDeactivation:          decodeDeactivation,
	TypeActivation:            decodeActivation,
	TypeAlert:                 decodeAlert,
}

// Decode turns a raw payload into a typed envelope. The payload carries
// varint(version) and varint(type) first, followed by the type-specific
// body. meta supplies the chain context (sender, receiver, block, txid).
// Any malformed field, overrun or unknown type is terminal: the returned
// envelope is nil and no handler may run.
func Decode(payload []byte, meta Meta) (Envelope, error) {
	var env Envelope
	err := packet.DecodeAdapter(func() error {
		c := packet.NewCursor(payload)
		meta.Version = uint16(c.NextVarInt())
		meta.Type = Type(c.NextVarInt())
		meta.Payload = payload

		dec, ok := decodeTable[meta.Type]
		if !ok {
			return ErrUnknownType
		}
		env = dec(c, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func decodeSimpleSend(c *packet.Cursor, meta Meta) Envelope {
	env := &SimpleSend{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeSendAll(c *packet.Cursor, meta Meta) Envelope {
	return &SendAll{Meta: meta}
}

func decodeSendVesting(c *packet.Cursor, meta Meta) Envelope {
	env := &SendVesting{Meta: meta}
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeCreatePropertyFixed(c *packet.Cursor, meta Meta) Envelope {
	env := &CreatePropertyFixed{Meta: meta}
	env.PropType = uint16(c.NextVarInt())
	env.PrevPropID = uint32(c.NextVarInt())
	env.Name = c.BoundedString(MaxNameLen)
	env.URL = c.BoundedString(MaxURLLen)
	env.Data = c.BoundedString(MaxDataLen)
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeCreatePropertyVariable(c *packet.Cursor, meta Meta) Envelope {
	env := &CreatePropertyVariable{Meta: meta}
	env.PropType = uint16(c.NextVarInt())
	env.PrevPropID = uint32(c.NextVarInt())
	env.Name = c.BoundedString(MaxNameLen)
	env.URL = c.BoundedString(MaxURLLen)
	env.Data = c.BoundedString(MaxDataLen)
	env.DesiredProperty = uint32(c.NextVarInt())
	env.TokensPerUnit = int64(c.NextVarInt())
	env.Deadline = int64(c.NextVarInt())
	env.EarlyBird = uint8(c.NextVarInt())
	env.Percentage = uint8(c.NextVarInt())
	env.Value, env.NewValue = env.TokensPerUnit, env.TokensPerUnit
	return env
}

func decodeCloseCrowdsale(c *packet.Cursor, meta Meta) Envelope {
	env := &CloseCrowdsale{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	return env
}

func decodeCreatePropertyManaged(c *packet.Cursor, meta Meta) Envelope {
	env := &CreatePropertyManaged{Meta: meta}
	env.PropType = uint16(c.NextVarInt())
	env.PrevPropID = uint32(c.NextVarInt())
	env.Name = c.BoundedString(MaxNameLen)
	env.URL = c.BoundedString(MaxURLLen)
	env.Data = c.BoundedString(MaxDataLen)
	env.KYCIDs = decodeTrailingIDs(c)
	return env
}

func decodeGrantTokens(c *packet.Cursor, meta Meta) Envelope {
	env := &GrantTokens{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeRevokeTokens(c *packet.Cursor, meta Meta) Envelope {
	env := &RevokeTokens{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeChangeIssuer(c *packet.Cursor, meta Meta) Envelope {
	env := &ChangeIssuer{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	return env
}

func decodeTradeOffer(c *packet.Cursor, meta Meta) Envelope {
	env := &TradeOffer{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.AmountForSale = int64(c.NextVarInt())
	env.AmountDesired = int64(c.NextVarInt())
	env.TimeLimit = uint8(c.NextVarInt())
	env.MinFee = int64(c.NextVarInt())
	env.SubAction = uint8(c.NextVarInt())
	env.Value, env.NewValue = env.AmountForSale, env.AmountForSale
	return env
}

func decodeDExBuyOffer(c *packet.Cursor, meta Meta) Envelope {
	env := &DExBuyOffer{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.AmountForSale = int64(c.NextVarInt())
	env.Price = int64(c.NextVarInt())
	env.TimeLimit = uint8(c.NextVarInt())
	env.MinFee = int64(c.NextVarInt())
	env.SubAction = uint8(c.NextVarInt())
	env.Value, env.NewValue = env.AmountForSale, env.AmountForSale
	return env
}

func decodeAcceptOfferBTC(c *packet.Cursor, meta Meta) Envelope {
	env := &AcceptOfferBTC{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Value, env.NewValue = env.Amount, env.Amount
	return env
}

func decodeMetaDExTrade(c *packet.Cursor, meta Meta) Envelope {
	env := &MetaDExTrade{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.AmountForSale = int64(c.NextVarInt())
	env.DesiredProperty = uint32(c.NextVarInt())
	env.DesiredValue = int64(c.NextVarInt())
	env.NewValue = env.AmountForSale
	return env
}

func decodeCreateContract(c *packet.Cursor, meta Meta) Envelope {
	env := &CreateContract{Meta: meta}
	env.Numerator = uint32(c.NextVarInt())
	env.Denominator = uint32(c.NextVarInt())
	env.Name = c.BoundedString(MaxNameLen)
	env.BlocksUntilExpiration = uint32(c.NextVarInt())
	env.NotionalSize = c.NextVarInt()
	env.CollateralCurrency = uint32(c.NextVarInt())
	env.MarginRequirement = c.NextVarInt()
	env.InverseQuoted = c.NextVarInt() != 0
	env.KYCIDs = decodeTrailingIDs(c)
	return env
}

func decodeContractDexTrade(c *packet.Cursor, meta Meta) Envelope {
	env := &ContractDexTrade{Meta: meta}
	env.ContractName = c.BoundedString(MaxNameLen)
	env.Amount = int64(c.NextVarInt())
	env.EffectivePrice = c.NextVarInt()
	env.TradingAction = uint8(c.NextVarInt())
	env.Leverage = c.NextVarInt()
	return env
}

func decodeCancelEcosystem(c *packet.Cursor, meta Meta) Envelope {
	env := &CancelEcosystem{Meta: meta}
	_ = c.NextVarInt() // legacy ecosystem selector, ignored
	env.ContractID = uint32(c.NextVarInt())
	return env
}

func decodeClosePosition(c *packet.Cursor, meta Meta) Envelope {
	env := &ClosePosition{Meta: meta}
	_ = c.NextVarInt() // legacy ecosystem selector, ignored
	env.ContractID = uint32(c.NextVarInt())
	return env
}

func decodeCancelOrdersByBlock(c *packet.Cursor, meta Meta) Envelope {
	env := &CancelOrdersByBlock{Meta: meta}
	env.TargetBlock = idx.Block(c.NextVarInt())
	env.TargetIdx = uint32(c.NextVarInt())
	return env
}

func decodeCreatePegged(c *packet.Cursor, meta Meta) Envelope {
	env := &CreatePegged{Meta: meta}
	env.PropType = uint16(c.NextVarInt())
	env.PrevPropID = uint32(c.NextVarInt())
	env.Name = c.BoundedString(MaxNameLen)
	env.Property = uint32(c.NextVarInt())
	env.ContractID = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	return env
}

func decodeSendPegged(c *packet.Cursor, meta Meta) Envelope {
	env := &SendPegged{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	return env
}

func decodeRedeemPegged(c *packet.Cursor, meta Meta) Envelope {
	env := &RedeemPegged{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.ContractID = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	return env
}

func decodeCreateOracleContract(c *packet.Cursor, meta Meta) Envelope {
	env := &CreateOracleContract{Meta: meta}
	env.Name = c.BoundedString(MaxNameLen)
	env.BlocksUntilExpiration = uint32(c.NextVarInt())
	env.NotionalSize = c.NextVarInt()
	env.CollateralCurrency = uint32(c.NextVarInt())
	env.MarginRequirement = c.NextVarInt()
	env.InverseQuoted = c.NextVarInt() != 0
	env.KYCIDs = decodeTrailingIDs(c)
	return env
}

// decodeContractRef covers the kinds whose body is a single contract id.
func decodeContractRef(t Type) decoder {
	return func(c *packet.Cursor, meta Meta) Envelope {
		id := uint32(c.NextVarInt())
		switch t {
		case TypeChangeOracleRef:
			return &ChangeOracleRef{Meta: meta, ContractID: id}
		case TypeOracleBackup:
			return &OracleBackup{Meta: meta, ContractID: id}
		default:
			return &CloseOracle{Meta: meta, ContractID: id}
		}
	}
}

func decodeSetOracle(c *packet.Cursor, meta Meta) Envelope {
	env := &SetOracle{Meta: meta}
	env.ContractID = uint32(c.NextVarInt())
	env.High = c.NextVarInt()
	env.Low = c.NextVarInt()
	env.Close = c.NextVarInt()
	return env
}

func decodeCommitChannel(c *packet.Cursor, meta Meta) Envelope {
	env := &CommitChannel{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Vout = c.NextVarInt()
	return env
}

func decodeWithdrawalFromChannel(c *packet.Cursor, meta Meta) Envelope {
	env := &WithdrawalFromChannel{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.Vout = c.NextVarInt()
	return env
}

func decodeInstantTrade(c *packet.Cursor, meta Meta) Envelope {
	env := &InstantTrade{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.AmountForSale = int64(c.NextVarInt())
	env.BlockForExpiry = idx.Block(c.NextVarInt())
	env.DesiredProperty = uint32(c.NextVarInt())
	env.DesiredValue = int64(c.NextVarInt())
	return env
}

func decodeUpdatePNL(c *packet.Cursor, meta Meta) Envelope {
	env := &UpdatePNL{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	// trailing block and vout references, carried but unused
	_ = c.NextVarInt()
	_ = c.NextVarInt()
	_ = c.NextVarInt()
	return env
}

func decodeTransfer(c *packet.Cursor, meta Meta) Envelope {
	env := &Transfer{Meta: meta}
	env.Property = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	return env
}

func decodeCreateChannel(c *packet.Cursor, meta Meta) Envelope {
	env := &CreateChannel{Meta: meta}
	env.BlocksUntilExpiry = idx.Block(c.NextVarInt())
	env.ChannelAddress = c.BoundedString(MaxAddressLen)
	return env
}

func decodeContractInstant(c *packet.Cursor, meta Meta) Envelope {
	env := &ContractInstant{Meta: meta}
	env.Contract = uint32(c.NextVarInt())
	env.Amount = int64(c.NextVarInt())
	env.BlockForExpiry = idx.Block(c.NextVarInt())
	env.Price = c.NextVarInt()
	env.TradingAction = uint8(c.NextVarInt())
	env.Leverage = c.NextVarInt()
	return env
}

func decodeNewIdRegistration(c *packet.Cursor, meta Meta) Envelope {
	env := &NewIdRegistration{Meta: meta}
	env.Website = c.BoundedString(MaxURLLen)
	env.CompanyName = c.BoundedString(MaxNameLen)
	return env
}

func decodeUpdateIdRegistration(c *packet.Cursor, meta Meta) Envelope {
	return &UpdateIdRegistration{Meta: meta}
}

func decodeDExPayment(c *packet.Cursor, meta Meta) Envelope {
	return &DExPayment{Meta: meta}
}

func decodeAttestation(c *packet.Cursor, meta Meta) Envelope {
	env := &Attestation{Meta: meta}
	env.Hash = c.BoundedString(MaxHashLen)
	return env
}

func decodeDeactivation(c *packet.Cursor, meta Meta) Envelope {
	env := &Deactivation{Meta: meta}
	env.FeatureID = uint16(c.NextVarInt())
	return env
}

func decodeActivation(c *packet.Cursor, meta Meta) Envelope {
	env := &Activation{Meta: meta}
	env.FeatureID = uint16(c.NextVarInt())
	env.ActivationBlock = idx.Block(c.NextVarInt())
	env.MinClientVersion = uint32(c.NextVarInt())
	return env
}

func decodeAlert(c *packet.Cursor, meta Meta) Envelope {
	env := &Alert{Meta: meta}
	env.AlertType = uint16(c.NextVarInt())
	env.AlertExpiry = uint32(c.NextVarInt())
	env.AlertText = c.BoundedString(MaxAlertTextLen)
	return env
}

// decodeTrailingIDs pulls varints until the payload end. Used for the
// optional trailing KYC whitelist of property and contract creation.
func decodeTrailingIDs(c *packet.Cursor) []int64 {
	var ids []int64
	for !c.Empty() {
		run := packet.NextVarIntBytes(c)
		if run == nil {
			break
		}
		ids = append(ids, int64(packet.Decompress(run)))
	}
	return ids
}
