package engine

import (
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// applyCreatePropertyFixed allocates a fixed-supply property and credits
// the whole supply to the issuer.
func (e *Engine) applyCreatePropertyFixed(tx *envelope.CreatePropertyFixed) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultSPValueOutOfRange
	}
	if tx.PropType != state.PropertyTypeIndivisible && tx.PropType != state.PropertyTypeDivisible {
		return ResultInvalidPropertyType
	}
	if tx.Name == "" {
		return ResultEmptyName
	}

	id := e.books.Registry.Put(&state.Property{
		Issuer:        tx.Sender,
		TxID:          tx.TxID,
		PropType:      tx.PropType,
		PrevPropID:    tx.PrevPropID,
		Name:          tx.Name,
		URL:           tx.URL,
		Data:          tx.Data,
		NumTokens:     tx.Amount,
		Fixed:         true,
		CreationBlock: blockHash,
		UpdateBlock:   blockHash,
	})
	e.mustUpdate("create fixed", tx.Sender, id, state.Available, tx.Amount)
	return Success
}

// applyCreatePropertyVariable allocates a crowdsale-funded property and
// opens the crowdsale under the issuer address.
func (e *Engine) applyCreatePropertyVariable(tx *envelope.CreatePropertyVariable) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.TokensPerUnit <= 0 || tx.TokensPerUnit > arith.MaxInt8Bytes {
		return ResultSPValueOutOfRange
	}
	if !e.books.Registry.Exists(tx.DesiredProperty) {
		return ResultSPPropertyNotFound
	}
	if tx.PropType != state.PropertyTypeIndivisible && tx.PropType != state.PropertyTypeDivisible {
		return ResultInvalidPropertyType
	}
	if tx.Name == "" {
		return ResultEmptyName
	}
	if tx.Deadline == 0 || tx.Deadline < tx.BlockTime {
		return ResultDeadlinePassed
	}
	if e.books.Crowdsales.Get(tx.Sender) != nil {
		return ResultSenderHasCrowdsale
	}

	id := e.books.Registry.Put(&state.Property{
		Issuer:          tx.Sender,
		TxID:            tx.TxID,
		PropType:        tx.PropType,
		PrevPropID:      tx.PrevPropID,
		Name:            tx.Name,
		URL:             tx.URL,
		Data:            tx.Data,
		NumTokens:       tx.TokensPerUnit,
		DesiredProperty: tx.DesiredProperty,
		Deadline:        tx.Deadline,
		EarlyBird:       tx.EarlyBird,
		Percentage:      tx.Percentage,
		CreationBlock:   blockHash,
		UpdateBlock:     blockHash,
	})
	if !e.books.Crowdsales.Insert(tx.Sender, &state.Crowdsale{
		PropertyID:      id,
		TokensPerUnit:   tx.TokensPerUnit,
		DesiredProperty: tx.DesiredProperty,
		Deadline:        tx.Deadline,
		EarlyBird:       tx.EarlyBird,
		Percentage:      tx.Percentage,
	}) {
		fatalf("create variable", "crowdsale insert for %s failed after precondition", tx.Sender)
	}
	return Success
}

// applyCloseCrowdsale closes the sender's crowdsale early, paying any
// missed issuer bonus.
func (e *Engine) applyCloseCrowdsale(tx *envelope.CloseCrowdsale) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	prop, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultSPPropertyNotFound
	}
	crowd := e.books.Crowdsales.Get(tx.Sender)
	if crowd == nil {
		return ResultNoCrowdsale
	}
	if crowd.PropertyID != tx.Property {
		return ResultCrowdsaleMismatch
	}

	e.closeCrowdsale(tx.Sender, crowd, &prop, tx.TxID)
	return Success
}

// applyCreatePropertyManaged allocates an issuer-mintable property with
// zero initial supply.
func (e *Engine) applyCreatePropertyManaged(tx *envelope.CreatePropertyManaged) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.PropType != state.PropertyTypeIndivisible && tx.PropType != state.PropertyTypeDivisible {
		return ResultInvalidPropertyType
	}
	if tx.Name == "" {
		return ResultEmptyName
	}

	e.books.Registry.Put(&state.Property{
		Issuer:        tx.Sender,
		TxID:          tx.TxID,
		PropType:      tx.PropType,
		PrevPropID:    tx.PrevPropID,
		Name:          tx.Name,
		URL:           tx.URL,
		Data:          tx.Data,
		Manual:        true,
		KYCIDs:        tx.KYCIDs,
		CreationBlock: blockHash,
		UpdateBlock:   blockHash,
	})
	return Success
}

// applyGrantTokens mints managed-property tokens to the receiver and
// records the supply change on the entry.
func (e *Engine) applyGrantTokens(tx *envelope.GrantTokens) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
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
	if !prop.Manual {
		return ResultNotManagedProperty
	}
	if prop.Issuer != tx.Sender {
		return ResultNotIssuer
	}
	if tx.Amount > arith.MaxInt8Bytes-prop.NumTokens {
		return ResultGrantExceedsSupply
	}

	prop.Grants = append(prop.Grants, state.GrantRecord{TxID: tx.TxID, Granted: tx.Amount})
	prop.NumTokens += tx.Amount
	prop.UpdateBlock = blockHash
	if err := e.books.Registry.Update(prop.ID, &prop); err != nil {
		fatalf("grant", "update of property %d: %v", prop.ID, err)
	}
	e.mustUpdate("grant", receiver, tx.Property, state.Available, tx.Amount)
	return Success
}

// applyRevokeTokens burns managed-property tokens held by the sender.
func (e *Engine) applyRevokeTokens(tx *envelope.RevokeTokens) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}
	prop, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultPropertyNotFound
	}
	if !prop.Manual {
		return ResultNotManagedProperty
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.Amount {
		return ResultInsufficientFunds
	}

	prop.Grants = append(prop.Grants, state.GrantRecord{TxID: tx.TxID, Revoked: tx.Amount})
	prop.NumTokens -= tx.Amount
	prop.UpdateBlock = blockHash
	if err := e.books.Registry.Update(prop.ID, &prop); err != nil {
		fatalf("revoke", "update of property %d: %v", prop.ID, err)
	}
	e.mustUpdate("revoke", tx.Sender, tx.Property, state.Available, -tx.Amount)
	return Success
}

// applyChangeIssuer hands issuer control of a property to the receiver.
// Neither side may be mid-crowdsale.
func (e *Engine) applyChangeIssuer(tx *envelope.ChangeIssuer) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	prop, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultSPPropertyNotFound
	}
	if prop.Issuer != tx.Sender {
		return ResultNotIssuer
	}
	if e.books.Crowdsales.Get(tx.Sender) != nil {
		return ResultSenderHasCrowdsale
	}
	if tx.Receiver == "" {
		return ResultEmptyReceiver
	}
	if e.books.Crowdsales.Get(tx.Receiver) != nil {
		return ResultReceiverHasCrowdsale
	}

	prop.Issuer = tx.Receiver
	prop.UpdateBlock = blockHash
	if err := e.books.Registry.Update(prop.ID, &prop); err != nil {
		fatalf("change issuer", "update of property %d: %v", prop.ID, err)
	}
	return Success
}
