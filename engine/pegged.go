package engine

import (
	"fmt"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// applyCreatePegged mints pegged currency against the sender's short
// exposure on a contract. The collateral and an equivalent number of
// short contracts both move into the ContractDexReserve class, fully
// backing the minted pool. Pegged pools of the same denominator share
// one property entry.
func (e *Engine) applyCreatePegged(tx *envelope.CreatePegged) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.PropType != state.PropertyTypeIndivisible &&
		tx.PropType != state.PropertyTypeDivisible &&
		tx.PropType != state.PropertyTypePegged {
		return ResultInvalidPropertyType
	}
	if tx.Name == "" {
		return ResultEmptyName
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultSPValueOutOfRange
	}

	balance := e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available)
	if balance == 0 {
		return ResultInsufficientFunds
	}

	contract, ok := e.books.Registry.Get(tx.ContractID)
	if !ok {
		return ResultPropertyNotFound
	}
	if !contract.IsContract() {
		return ResultSPTokensTypeMismatch
	}
	if contract.CollateralCurrency != tx.Property {
		return ResultCollateralMismatch
	}

	// whole contracts backing the minted amount, in 1e8 contract units
	notional := int64(contract.NotionalSize)
	whole, ok := arith.MulDivRoundUp(tx.Amount, notional, arith.COIN)
	if !ok {
		return ResultSPValueOutOfRange
	}
	contracts, ok := arith.MulDiv(whole, arith.COIN, 1, 1, 1)
	if !ok {
		return ResultSPValueOutOfRange
	}
	amountNeeded := tx.Amount

	position := e.books.Ledger.GetBalance(tx.Sender, tx.ContractID, state.NegativeBalance)
	if balance < amountNeeded || position < contracts {
		return ResultInsufficientContracts
	}

	pegged, exists := e.books.Registry.FindPeggedByDenominator(contract.Denominator)
	var peggedID uint32
	if !exists {
		peggedID = e.books.Registry.Put(&state.Property{
			Issuer:        tx.Sender,
			TxID:          tx.TxID,
			PropType:      state.PropertyTypePegged,
			Name:          tx.Name,
			Fixed:         true,
			Manual:        true,
			NumTokens:     amountNeeded,
			ContractID:    tx.ContractID,
			Denominator:   contract.Denominator,
			Series:        fmt.Sprintf("N 1 - %d", amountNeeded/arith.COIN),
			CreationBlock: blockHash,
			UpdateBlock:   blockHash,
		})
	} else {
		peggedID = pegged.ID
		lower := pegged.NumTokens/arith.COIN + 1
		pegged.NumTokens += amountNeeded
		pegged.Series = fmt.Sprintf("N %d - %d", lower, pegged.NumTokens/arith.COIN)
		if err := e.books.Registry.Update(peggedID, &pegged); err != nil {
			fatalf("create pegged", "update of property %d: %v", peggedID, err)
		}
	}

	e.mustUpdate("create pegged", tx.Sender, peggedID, state.Available, tx.Amount)
	e.mustUpdate("create pegged", tx.Sender, tx.ContractID, state.NegativeBalance, -contracts)
	e.mustUpdate("create pegged", tx.Sender, tx.ContractID, state.ContractDexReserve, contracts)
	e.mustUpdate("create pegged", tx.Sender, tx.Property, state.Available, -amountNeeded)
	e.mustUpdate("create pegged", tx.Sender, tx.Property, state.ContractDexReserve, amountNeeded)
	return Success
}

// applySendPegged moves pegged currency between available balances.
func (e *Engine) applySendPegged(tx *envelope.SendPegged) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultSendTypeNotAllowed
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}
	if !e.books.Registry.Exists(tx.Property) {
		return ResultPropertyNotFound
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}

	receiver := tx.Receiver
	if receiver == "" {
		receiver = tx.Sender
	}
	e.mustUpdate("send pegged", tx.Sender, tx.Property, state.Available, -tx.Amount)
	e.mustUpdate("send pegged", receiver, tx.Property, state.Available, tx.Amount)
	return Success
}

// applyRedeemPegged burns pegged currency and releases the collateral
// and contract exposure locked behind it. The freed short contracts
// offset an existing long position first; whatever remains reopens as
// short exposure.
func (e *Engine) applyRedeemPegged(tx *envelope.RedeemPegged) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultSendTypeNotAllowed
	}
	pegged, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultPropertyNotFound
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}
	contract, ok := e.books.Registry.Get(tx.ContractID)
	if !ok {
		return ResultPropertyNotFound
	}

	notional := int64(contract.NotionalSize)
	if notional == 0 {
		return ResultValueOutOfRange
	}
	contractsNeeded := tx.Amount / notional
	if contractsNeeded <= 0 || tx.Amount <= 0 {
		// below one whole contract nothing unlocks
		return Success
	}

	// only the minter carries the backing reserves; holders that merely
	// received pegged tokens cannot unlock them
	if e.books.Ledger.GetBalance(tx.Sender, tx.ContractID, state.ContractDexReserve) < contractsNeeded ||
		e.books.Ledger.GetBalance(tx.Sender, contract.CollateralCurrency, state.ContractDexReserve) < tx.Amount {
		return ResultInsufficientContracts
	}

	posContracts := e.books.Ledger.GetBalance(tx.Sender, tx.ContractID, state.PositiveBalance)
	negContracts := e.books.Ledger.GetBalance(tx.Sender, tx.ContractID, state.NegativeBalance)

	pegged.NumTokens -= tx.Amount
	if err := e.books.Registry.Update(pegged.ID, &pegged); err != nil {
		fatalf("redeem pegged", "update of property %d: %v", pegged.ID, err)
	}

	e.mustUpdate("redeem pegged", tx.Sender, tx.Property, state.Available, -tx.Amount)
	e.mustUpdate("redeem pegged", tx.Sender, tx.ContractID, state.ContractDexReserve, -contractsNeeded)
	e.mustUpdate("redeem pegged", tx.Sender, contract.CollateralCurrency, state.ContractDexReserve, -tx.Amount)
	e.mustUpdate("redeem pegged", tx.Sender, contract.CollateralCurrency, state.Available, tx.Amount)

	switch {
	case posContracts > 0 && negContracts == 0:
		dif := posContracts - contractsNeeded
		if dif >= 0 {
			e.mustUpdate("redeem pegged", tx.Sender, tx.ContractID, state.PositiveBalance, -contractsNeeded)
		} else {
			e.mustUpdate("redeem pegged", tx.Sender, tx.ContractID, state.PositiveBalance, -posContracts)
			e.mustUpdate("redeem pegged", tx.Sender, tx.ContractID, state.NegativeBalance, -dif)
		}
	case posContracts == 0 && negContracts >= 0:
		e.mustUpdate("redeem pegged", tx.Sender, tx.ContractID, state.NegativeBalance, contractsNeeded)
	}
	return Success
}
