package engine

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// withdrawalDelay is how many blocks a queued channel withdrawal waits
// before the driver settles it.
const withdrawalDelay = 7

// applyCommitChannel moves funds from the sender's available balance
// into the reserve of the channel named by the receiver address.
func (e *Engine) applyCommitChannel(tx *envelope.CommitChannel) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if !e.books.Channels.IsChannelAddress(tx.Receiver) {
		return ResultNotChannelAddress
	}
	if !e.books.Registry.Exists(tx.Property) {
		return ResultTokensPropertyMissing
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}

	e.mustUpdate("channel commit", tx.Sender, tx.Property, state.Available, -tx.Amount)
	e.mustUpdate("channel commit", tx.Receiver, tx.Property, state.ChannelReserve, tx.Amount)
	e.books.Channels.RecordCommit(tx.Receiver, tx.Sender, tx.Property, tx.Amount)
	return Success
}

// applyWithdrawal queues an exit from a channel, bounded by the channel
// reserve and by what the sender still has committed.
func (e *Engine) applyWithdrawal(tx *envelope.WithdrawalFromChannel) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if !e.books.Registry.Exists(tx.Property) {
		return ResultTokensPropertyMissing
	}
	if !e.books.Channels.IsChannelAddress(tx.Receiver) {
		return ResultNotChannelAddress
	}
	if tx.Amount <= 0 || tx.Amount > e.books.Ledger.GetBalance(tx.Receiver, tx.Property, state.ChannelReserve) {
		return ResultTokensShortReserve
	}
	if tx.Amount > e.books.Channels.Committed(tx.Receiver, tx.Sender, tx.Property) {
		return ResultWithdrawalTooLarge
	}

	if !e.books.Channels.DrawDown(tx.Receiver, tx.Sender, tx.Property, tx.Amount) {
		fatalf("channel withdrawal", "draw down failed after entitlement check: %s", tx.Sender)
	}
	e.books.Channels.QueueWithdrawal(state.PendingWithdrawal{
		Address:  tx.Sender,
		Multisig: tx.Receiver,
		Property: tx.Property,
		Amount:   tx.Amount,
		Deadline: tx.Block + withdrawalDelay,
	})
	return Success
}

// extendChannelExpiry pushes the channel expiry out by the blocks
// elapsed since the last exchange, capped at the one-day window.
func (e *Engine) extendChannelExpiry(ch *state.Channel, block idx.Block) {
	difference := block - ch.LastExchangeBlock
	expiry := ch.ExpiryHeight
	if difference < e.cfg.DayBlocks {
		expiry += difference
	}
	if !e.books.Channels.UpdateExpiry(ch.Multisig, expiry, block) {
		fatalf("channel expiry", "channel %s vanished mid-transition", ch.Multisig)
	}
}

// applyInstantTrade settles a token-for-token exchange between the two
// channel counterparties out of the channel reserve, then extends the
// channel expiry.
func (e *Engine) applyInstantTrade(tx *envelope.InstantTrade) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultMetaTypeNotAllowed
	}
	if tx.Property == tx.DesiredProperty {
		return ResultChannelSameProperty
	}
	forSale, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultChannelPropertyMissing
	}
	desired, ok := e.books.Registry.Get(tx.DesiredProperty)
	if !ok {
		return ResultChannelDesiredMissing
	}
	if res := e.checkAttestations(&forSale, tx.Sender, tx.Sender); res.Rejected() {
		return res
	}
	if res := e.checkAttestations(&desired, tx.Sender, tx.Sender); res.Rejected() {
		return res
	}

	ch, ok := e.books.Channels.Get(tx.Sender)
	if !ok {
		return ResultNoChannelForSender
	}
	if tx.BlockForExpiry < tx.Block || ch.ExpiryHeight < tx.Block {
		return ResultChannelExpired
	}
	if tx.AmountForSale <= 0 || tx.DesiredValue <= 0 {
		return ResultValueOutOfRange
	}
	reserveA := e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.ChannelReserve)
	reserveB := e.books.Ledger.GetBalance(tx.Sender, tx.DesiredProperty, state.ChannelReserve)
	if reserveA < tx.AmountForSale || reserveB < tx.DesiredValue {
		return ResultChannelShortReserve
	}

	// both legs settle directly into the counterparties' balances
	e.mustUpdate("instant trade", tx.Sender, tx.Property, state.ChannelReserve, -tx.AmountForSale)
	e.mustUpdate("instant trade", ch.Second, tx.Property, state.Available, tx.AmountForSale)
	e.mustUpdate("instant trade", tx.Sender, tx.DesiredProperty, state.ChannelReserve, -tx.DesiredValue)
	e.mustUpdate("instant trade", ch.First, tx.DesiredProperty, state.Available, tx.DesiredValue)

	e.extendChannelExpiry(&ch, tx.Block)
	e.recordTrade(&tx.Meta)
	return Success
}

// applyUpdatePNL settles realized profit out of the channel reserve
// into the receiver's available balance.
func (e *Engine) applyUpdatePNL(tx *envelope.UpdatePNL) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if !e.books.Registry.Exists(tx.Property) {
		return ResultChannelPropertyMissing
	}
	if tx.Amount <= 0 || e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.ChannelReserve) < tx.Amount {
		return ResultChannelShortReserve
	}

	e.mustUpdate("update pnl", tx.Sender, tx.Property, state.ChannelReserve, -tx.Amount)
	e.mustUpdate("update pnl", tx.Receiver, tx.Property, state.Available, tx.Amount)
	return Success
}

// applyTransfer moves channel reserve between the two channel addresses.
func (e *Engine) applyTransfer(tx *envelope.Transfer) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if !e.books.Registry.Exists(tx.Property) {
		return ResultChannelPropertyMissing
	}
	if tx.Amount <= 0 || e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.ChannelReserve) < tx.Amount {
		return ResultChannelShortReserve
	}

	e.mustUpdate("channel transfer", tx.Sender, tx.Property, state.ChannelReserve, -tx.Amount)
	e.mustUpdate("channel transfer", tx.Receiver, tx.Property, state.ChannelReserve, tx.Amount)
	return Success
}

// applyCreateChannel registers a channel between sender and receiver
// backed by the carried multisig address.
func (e *Engine) applyCreateChannel(tx *envelope.CreateChannel) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if tx.ChannelAddress == "" {
		return ResultNotChannelAddress
	}

	if !e.books.Channels.Create(state.Channel{
		Multisig:          tx.ChannelAddress,
		First:             tx.Sender,
		Second:            tx.Receiver,
		ExpiryHeight:      tx.Block + tx.BlocksUntilExpiry,
		LastExchangeBlock: tx.Block,
	}) {
		return ResultNotChannelAddress
	}
	return Success
}

// applyContractInstant settles a leveraged contract trade between the
// channel counterparties: the margin leaves the channel reserve and
// lands in both parties' margin class.
func (e *Engine) applyContractInstant(tx *envelope.ContractInstant) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultMetaTypeNotAllowed
	}
	contract, ok := e.books.Registry.Get(tx.Contract)
	if !ok || !contract.IsContract() {
		return ResultChannelDesiredMissing
	}
	ch, ok := e.books.Channels.Get(tx.Sender)
	if !ok {
		return ResultNoChannelForSender
	}
	if tx.BlockForExpiry < tx.Block || ch.ExpiryHeight < tx.Block {
		return ResultChannelExpired
	}
	if !contractWindowOpen(&contract, uint64(tx.Block)) {
		return ResultChannelExpired
	}
	if res := e.checkAttestations(&contract, ch.First, ch.Second); res.Rejected() {
		return res
	}

	reserve, ok := arith.ChannelContractReserve(tx.Amount, contract.MarginRequirement, tx.Leverage)
	if !ok || reserve <= 0 {
		return ResultValueOutOfRange
	}
	collateral := contract.CollateralCurrency
	if e.books.Ledger.GetBalance(tx.Sender, collateral, state.ChannelReserve) < 2*reserve {
		return ResultChannelShortFees
	}

	e.mustUpdate("contract instant", tx.Sender, collateral, state.ChannelReserve, -2*reserve)
	e.mustUpdate("contract instant", ch.First, collateral, state.ContractDexMargin, reserve)
	e.mustUpdate("contract instant", ch.Second, collateral, state.ContractDexMargin, reserve)

	e.extendChannelExpiry(&ch, tx.Block)
	e.recordTrade(&tx.Meta)
	return Success
}
