package engine

import (
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
)

// applyNewIdRegistration records the sender as a KYC registrar.
func (e *Engine) applyNewIdRegistration(tx *envelope.NewIdRegistration) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultKYCTypeNotAllowed
	}
	if _, ok := e.books.KYC.RegisterRegistrar(tx.Sender, tx.Website, tx.CompanyName); !ok {
		return ResultAlreadyRegistered
	}
	return Success
}

// applyUpdateIdRegistration reassigns the sender's registrar record to
// the receiver.
func (e *Engine) applyUpdateIdRegistration(tx *envelope.UpdateIdRegistration) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultKYCTypeNotAllowed
	}
	if !e.books.KYC.MoveRegistrar(tx.Sender, tx.Receiver) {
		return ResultAlreadyRegistered
	}
	return Success
}

// applyAttestation records a KYC tier for the receiver. A plain address
// may only attest itself at the baseline tier; a registrar assigns its
// own tier to third parties.
func (e *Engine) applyAttestation(tx *envelope.Attestation) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultKYCTypeNotAllowed
	}

	kycID := state.KYCSelfAttested
	if r, ok := e.books.KYC.Registrar(tx.Sender); ok {
		kycID = r.KYCID
	} else if tx.Sender != tx.Receiver {
		return ResultNotRegistrar
	}

	e.books.KYC.Attest(tx.Receiver, kycID, tx.Hash)
	return Success
}
