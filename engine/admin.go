package engine

import (
	"github.com/tradelayer/go-tradelayer/consensus"
	"github.com/tradelayer/go-tradelayer/envelope"
)

// applyActivation schedules a consensus feature, provided the sender is
// in the activation admin set.
func (e *Engine) applyActivation(tx *envelope.Activation) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultTypeNotAllowed
	}
	if !e.gate.IsActivationAuthorized(tx.Sender) {
		return ResultNotAuthorized
	}
	if !e.gate.ActivateFeature(tx.FeatureID, tx.ActivationBlock, tx.MinClientVersion, tx.Block) {
		return ResultFeatureOpFailed
	}
	return Success
}

// applyDeactivation switches a consensus feature off immediately.
func (e *Engine) applyDeactivation(tx *envelope.Deactivation) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultTypeNotAllowed
	}
	if !e.gate.IsActivationAuthorized(tx.Sender) {
		return ResultNotAuthorized
	}
	if !e.gate.DeactivateFeature(tx.FeatureID, tx.Block) {
		return ResultFeatureOpFailed
	}
	return Success
}

// applyAlert stores an operator alert; the clear-all alert type removes
// every alert the sender broadcast instead.
func (e *Engine) applyAlert(tx *envelope.Alert) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultTypeNotAllowed
	}
	if !e.gate.IsAlertAuthorized(tx.Sender) {
		return ResultNotAuthorized
	}

	if tx.AlertType == 0xFFFF {
		e.gate.DeleteAlerts(tx.Sender)
		return Success
	}
	e.gate.AddAlert(consensus.Alert{
		Sender:    tx.Sender,
		AlertType: tx.AlertType,
		Expiry:    tx.AlertExpiry,
		Text:      tx.AlertText,
	})
	return Success
}
