package engine

import (
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// applySimpleSend moves an amount of one property between available
// balances, then feeds a crowdsale run by the receiver, if any. A send
// without a receiver moves the amount back to the sender, so the
// self-send path exercises the same checks and mutations.
func (e *Engine) applySimpleSend(tx *envelope.SimpleSend) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultSendTypeNotAllowed
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}
	prop, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultPropertyNotFound
	}

	receiver := tx.Receiver
	if receiver == "" {
		receiver = tx.Sender
	}

	if res := e.checkAttestations(&prop, tx.Sender, receiver); res.Rejected() {
		return res
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}

	e.mustUpdate("simple send", tx.Sender, tx.Property, state.Available, -tx.Amount)
	e.mustUpdate("simple send", receiver, tx.Property, state.Available, tx.Amount)

	// a send to a fundraising issuer doubles as a crowdsale participation
	if tx.Receiver != "" && e.books.Crowdsales.Get(tx.Receiver) != nil {
		e.participateCrowdsale(tx)
	}
	return Success
}

// applySendAll drains every positive available balance of the sender
// into the receiver. NewValue reports how many properties moved.
func (e *Engine) applySendAll(tx *envelope.SendAll) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultSendTypeNotAllowed
	}

	receiver := tx.Receiver
	if receiver == "" {
		receiver = tx.Sender
	}

	if !e.books.Ledger.HasTally(tx.Sender) {
		return ResultSendAllNoTally
	}

	var moved int64
	for _, property := range e.books.Ledger.PropertiesOf(tx.Sender) {
		amount := e.books.Ledger.GetBalance(tx.Sender, property, state.Available)
		if amount <= 0 {
			continue
		}
		e.mustUpdate("send all", tx.Sender, property, state.Available, -amount)
		e.mustUpdate("send all", receiver, property, state.Available, amount)
		moved++
	}
	if moved == 0 {
		return ResultSendAllZeroMoved
	}
	tx.NewValue = moved
	return Success
}

// applySendVesting moves vesting tokens to the receiver and credits an
// equal unvested allocation of the layer's native token.
func (e *Engine) applySendVesting(tx *envelope.SendVesting) Result {
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultSendSanity
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSendTypeNotAllowed
	}
	if e.books.Ledger.GetBalance(tx.Sender, state.PropertyVesting, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}

	receiver := tx.Receiver
	if receiver == "" {
		receiver = tx.Sender
	}
	e.mustUpdate("send vesting", tx.Sender, state.PropertyVesting, state.Available, -tx.Amount)
	e.mustUpdate("send vesting", receiver, state.PropertyVesting, state.Available, tx.Amount)
	e.mustUpdate("send vesting", receiver, state.PropertyALL, state.Unvested, tx.Amount)
	return Success
}

// checkAttestations verifies that both parties carry a KYC attestation
// admitted by the property's whitelist. Properties without a whitelist
// admit unattested addresses too.
func (e *Engine) checkAttestations(prop *state.Property, sender, receiver string) Result {
	if len(prop.KYCIDs) == 0 {
		return Success
	}
	senderID, ok := e.books.KYC.CheckAttestation(sender)
	if !ok || !state.Matches(prop.KYCIDs, senderID) {
		return ResultSenderNotAttested
	}
	receiverID, ok := e.books.KYC.CheckAttestation(receiver)
	if !ok || !state.Matches(prop.KYCIDs, receiverID) {
		return ResultReceiverNotAttested
	}
	return Success
}
