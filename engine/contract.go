package engine

import (
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// applyCreateContract registers a native futures contract. A zero
// blocks-until-expiration selects the perpetual variant.
func (e *Engine) applyCreateContract(tx *envelope.CreateContract) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.Name == "" {
		return ResultEmptyName
	}

	propType := state.PropertyTypeNativeContract
	if tx.BlocksUntilExpiration == 0 {
		propType = state.PropertyTypePerpetualContracts
	}

	e.books.Registry.Put(&state.Property{
		Issuer:                tx.Sender,
		TxID:                  tx.TxID,
		PropType:              propType,
		Name:                  tx.Name,
		Manual:                true,
		InitBlock:             tx.Block,
		BlocksUntilExpiration: tx.BlocksUntilExpiration,
		Numerator:             tx.Numerator,
		Denominator:           tx.Denominator,
		NotionalSize:          tx.NotionalSize,
		CollateralCurrency:    tx.CollateralCurrency,
		MarginRequirement:     tx.MarginRequirement,
		InverseQuoted:         tx.InverseQuoted,
		KYCIDs:                tx.KYCIDs,
		CreationBlock:         blockHash,
		UpdateBlock:           blockHash,
	})
	return Success
}

// contractWindowOpen reports whether a contract still accepts trades at
// the block. Perpetuals never expire.
func contractWindowOpen(c *state.Property, block uint64) bool {
	if c.BlocksUntilExpiration == 0 {
		return true
	}
	start := uint64(c.InitBlock)
	return block >= start && block <= start+uint64(c.BlocksUntilExpiration)
}

// applyContractDexTrade locks margin for a leveraged position and hands
// the order to the contract matcher. The required reserve is
//
//	(COIN * amount * marginRequirement) / (leverage * unitPrice)
//
// with the live market price as unit price for inverse-quoted contracts.
func (e *Engine) applyContractDexTrade(tx *envelope.ContractDexTrade) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultContractTypeNotAllowed
	}
	contract, ok := e.books.Registry.FindContractByName(tx.ContractName)
	if !ok {
		return ResultSPPropertyNotFound
	}
	if res := e.checkAttestations(&contract, tx.Sender, tx.Sender); res.Rejected() {
		return res
	}
	if !contractWindowOpen(&contract, uint64(tx.Block)) {
		return ResultContractWindowClosed
	}

	unitPrice := uint64(arith.COIN)
	if contract.InverseQuoted && e.contracts != nil {
		if price := e.contracts.MarketPrice(contract.ID); price > 0 {
			unitPrice = price
		}
	}
	reserve, ok := arith.ContractReserve(tx.Amount, contract.MarginRequirement, tx.Leverage, unitPrice)
	if !ok {
		return ResultValueOutOfRange
	}

	collateral := contract.CollateralCurrency
	balance := e.books.Ledger.GetBalance(tx.Sender, collateral, state.Available)
	if balance < reserve || balance == 0 {
		return ResultInsufficientFunds
	}

	// small positions can round to a zero reserve; nothing to lock then
	if reserve > 0 {
		e.mustUpdate("contract trade", tx.Sender, collateral, state.Available, -reserve)
		e.mustUpdate("contract trade", tx.Sender, collateral, state.ContractDexMargin, reserve)
	}

	e.payNodeReward(tx.Sender, tx.Block)

	e.recordTrade(&tx.Meta)
	if e.contracts != nil {
		e.contracts.SubmitContractOrder(ContractOrder{
			Sender:         tx.Sender,
			ContractID:     contract.ID,
			Amount:         tx.Amount,
			EffectivePrice: tx.EffectivePrice,
			TradingAction:  tx.TradingAction,
			Leverage:       tx.Leverage,
			Block:          tx.Block,
			TxIdx:          tx.TxIdx,
			TxID:           tx.TxID,
		})
	}
	return Success
}

// applyCancelEcosystem cancels every order of the sender on a contract.
func (e *Engine) applyCancelEcosystem(tx *envelope.CancelEcosystem) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultContractTypeNotAllowed
	}
	if e.contracts != nil {
		e.contracts.CancelEverything(tx.ContractID, tx.Sender)
	}
	return Success
}

// applyClosePosition closes the sender's open position on a contract,
// settled in its collateral currency by the matcher.
func (e *Engine) applyClosePosition(tx *envelope.ClosePosition) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultContractTypeNotAllowed
	}
	contract, ok := e.books.Registry.Get(tx.ContractID)
	if !ok {
		return ResultPropertyNotFound
	}
	if e.contracts != nil {
		e.contracts.ClosePosition(tx.Sender, tx.ContractID, contract.CollateralCurrency)
	}
	return Success
}
