package engine

import (
	"sync"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

type dexKey struct {
	Sender   string
	Property uint32
}

// dexOffer is one resting DEx offer. A sell offer locks its amount in
// the SellOfferReserve class; a buy offer only advertises a price.
type dexOffer struct {
	AmountForSale int64
	AmountDesired int64
	Price         int64
	TimeLimit     uint8
	MinFee        int64
	Buy           bool
}

// dexBook stores the resting offers keyed by (sender, property): one
// offer per pair.
type dexBook struct {
	mu     sync.RWMutex
	offers map[dexKey]*dexOffer
}

func newDexBook() *dexBook {
	return &dexBook{offers: make(map[dexKey]*dexOffer)}
}

func (b *dexBook) get(sender string, property uint32) *dexOffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offers[dexKey{sender, property}]
}

func (b *dexBook) put(sender string, property uint32, o *dexOffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offers[dexKey{sender, property}] = o
}

func (b *dexBook) remove(sender string, property uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.offers, dexKey{sender, property})
}

// applyTradeOffer runs the sell offer state machine. Version 0 infers
// the sub-action from the offered amount; version 1 carries it
// explicitly and rejects mismatches against the resting-offer state.
func (e *Engine) applyTradeOffer(tx *envelope.TradeOffer) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultOfferTypeNotAllowed
	}
	if tx.AmountForSale < 0 || tx.AmountForSale > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}

	existing := e.dex.get(tx.Sender, tx.Property)

	switch tx.Version {
	case 0:
		if tx.AmountForSale != 0 {
			if existing != nil {
				return e.updateSellOffer(tx, existing)
			}
			return e.createSellOffer(tx)
		}
		if existing == nil {
			return ResultOfferMissing
		}
		return e.cancelSellOffer(tx, existing)

	case 1:
		if existing != nil && tx.SubAction != envelope.SubActionCancel && tx.SubAction != envelope.SubActionUpdate {
			return ResultOfferExists
		}
		if existing == nil && tx.SubAction != envelope.SubActionNew {
			return ResultOfferMissing
		}
		switch tx.SubAction {
		case envelope.SubActionNew:
			return e.createSellOffer(tx)
		case envelope.SubActionUpdate:
			return e.updateSellOffer(tx, existing)
		case envelope.SubActionCancel:
			return e.cancelSellOffer(tx, existing)
		default:
			return ResultUnknownSubAction
		}

	default:
		return ResultUnknownVersion
	}
}

func (e *Engine) createSellOffer(tx *envelope.TradeOffer) Result {
	// version 0 routes a zero amount to cancel before reaching here;
	// version 1 may carry an explicit New with nothing to sell
	if tx.AmountForSale == 0 {
		return ResultValueOutOfRange
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.AmountForSale {
		return ResultInsufficientFunds
	}
	e.mustUpdate("sell offer", tx.Sender, tx.Property, state.Available, -tx.AmountForSale)
	e.mustUpdate("sell offer", tx.Sender, tx.Property, state.SellOfferReserve, tx.AmountForSale)
	e.dex.put(tx.Sender, tx.Property, &dexOffer{
		AmountForSale: tx.AmountForSale,
		AmountDesired: tx.AmountDesired,
		TimeLimit:     tx.TimeLimit,
		MinFee:        tx.MinFee,
	})
	return Success
}

func (e *Engine) updateSellOffer(tx *envelope.TradeOffer, existing *dexOffer) Result {
	delta := tx.AmountForSale - existing.AmountForSale
	if delta > 0 && e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < delta {
		return ResultInsufficientFunds
	}
	if delta != 0 {
		e.mustUpdate("sell offer update", tx.Sender, tx.Property, state.Available, -delta)
		e.mustUpdate("sell offer update", tx.Sender, tx.Property, state.SellOfferReserve, delta)
	}
	existing.AmountForSale = tx.AmountForSale
	existing.AmountDesired = tx.AmountDesired
	existing.TimeLimit = tx.TimeLimit
	existing.MinFee = tx.MinFee
	return Success
}

func (e *Engine) cancelSellOffer(tx *envelope.TradeOffer, existing *dexOffer) Result {
	if existing.AmountForSale > 0 {
		e.mustUpdate("sell offer cancel", tx.Sender, tx.Property, state.SellOfferReserve, -existing.AmountForSale)
		e.mustUpdate("sell offer cancel", tx.Sender, tx.Property, state.Available, existing.AmountForSale)
	}
	e.dex.remove(tx.Sender, tx.Property)
	return Success
}

// applyDExBuyOffer runs the buy offer state machine. Buy offers reserve
// nothing; the base-asset payment settles them outside the books.
func (e *Engine) applyDExBuyOffer(tx *envelope.DExBuyOffer) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultOfferTypeNotAllowed
	}
	if tx.AmountForSale < 0 || tx.AmountForSale > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}

	existing := e.dex.get(tx.Sender, tx.Property)
	newOffer := &dexOffer{
		AmountForSale: tx.AmountForSale,
		Price:         tx.Price,
		TimeLimit:     tx.TimeLimit,
		MinFee:        tx.MinFee,
		Buy:           true,
	}

	switch tx.Version {
	case 0:
		if tx.AmountForSale != 0 {
			e.dex.put(tx.Sender, tx.Property, newOffer)
			return Success
		}
		if existing == nil {
			return ResultOfferMissing
		}
		e.dex.remove(tx.Sender, tx.Property)
		return Success

	case 1:
		if existing != nil && tx.SubAction != envelope.SubActionCancel && tx.SubAction != envelope.SubActionUpdate {
			return ResultOfferExists
		}
		if existing == nil && tx.SubAction != envelope.SubActionNew {
			return ResultOfferMissing
		}
		switch tx.SubAction {
		case envelope.SubActionNew, envelope.SubActionUpdate:
			e.dex.put(tx.Sender, tx.Property, newOffer)
			return Success
		case envelope.SubActionCancel:
			e.dex.remove(tx.Sender, tx.Property)
			return Success
		default:
			return ResultUnknownSubAction
		}

	default:
		return ResultUnknownVersion
	}
}

// applyAcceptOffer registers intent to take a resting sell offer. The
// base-asset leg settles off the books; the accept only pins the amount.
func (e *Engine) applyAcceptOffer(tx *envelope.AcceptOfferBTC) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultOfferTypeNotAllowed
	}
	if tx.Amount <= 0 || tx.Amount > arith.MaxInt8Bytes {
		return ResultValueOutOfRange
	}
	offer := e.dex.get(tx.Receiver, tx.Property)
	if offer == nil || offer.Buy {
		return ResultOfferMissing
	}
	e.recordTrade(&tx.Meta)
	return Success
}

// applyDExPayment acknowledges a base-asset payment for an accepted
// offer. Settlement is carried by the payment itself.
func (e *Engine) applyDExPayment(tx *envelope.DExPayment) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultMetaTypeNotAllowed
	}
	e.recordTrade(&tx.Meta)
	return Success
}

// applyMetaDExTrade locks the offered amount and hands a token-for-token
// order to the spot matcher.
func (e *Engine) applyMetaDExTrade(tx *envelope.MetaDExTrade) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultMetaTypeNotAllowed
	}
	if tx.Property == tx.DesiredProperty {
		return ResultSameProperty
	}
	forSale, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultForSaleMissing
	}
	if !e.books.Registry.Exists(tx.DesiredProperty) {
		return ResultDesiredMissing
	}
	if res := e.checkAttestations(&forSale, tx.Sender, tx.Sender); res.Rejected() {
		return res
	}
	if tx.AmountForSale <= 0 || tx.AmountForSale > arith.MaxInt8Bytes {
		return ResultForSaleOutOfRange
	}
	if tx.DesiredValue <= 0 || tx.DesiredValue > arith.MaxInt8Bytes {
		return ResultDesiredOutOfRange
	}
	if e.books.Ledger.GetBalance(tx.Sender, tx.Property, state.Available) < tx.AmountForSale {
		return ResultInsufficientFunds
	}

	e.recordTrade(&tx.Meta)
	if e.spot != nil {
		e.spot.SubmitSpotOrder(SpotOrder{
			Sender:          tx.Sender,
			Property:        tx.Property,
			AmountForSale:   tx.AmountForSale,
			DesiredProperty: tx.DesiredProperty,
			DesiredValue:    tx.DesiredValue,
			Block:           tx.Block,
			TxIdx:           tx.TxIdx,
			TxID:            tx.TxID,
		})
	}
	return Success
}

// applyCancelOrdersByBlock cancels the spot order placed at an exact
// (block, index) position.
func (e *Engine) applyCancelOrdersByBlock(tx *envelope.CancelOrdersByBlock) Result {
	if !e.gateAllows(&tx.Meta) {
		return ResultMetaTypeNotAllowed
	}
	if e.spot != nil {
		e.spot.CancelForBlock(tx.TargetBlock, tx.TargetIdx)
	}
	return Success
}
