package engine

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/tradelayer/go-tradelayer/consensus"
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
)

// ChainReader resolves block heights against the active chain.
type ChainReader interface {
	// BlockHash returns the hash of the block at the given height, or
	// false when the height is not in the active chain.
	BlockHash(block idx.Block) (common.Hash, bool)
}

// SpotOrder is a token-for-token order handed to the spot matcher.
type SpotOrder struct {
	Sender          string
	Property        uint32
	AmountForSale   int64
	DesiredProperty uint32
	DesiredValue    int64
	Block           idx.Block
	TxIdx           uint32
	TxID            common.Hash
}

// ContractOrder is a leveraged order handed to the contract matcher.
type ContractOrder struct {
	Sender         string
	ContractID     uint32
	Amount         int64
	EffectivePrice uint64
	TradingAction  uint8
	Leverage       uint64
	Block          idx.Block
	TxIdx          uint32
	TxID           common.Hash
}

// SpotMatcher matches token-for-token orders. Internals are outside the
// transition core; the engine only records intent.
type SpotMatcher interface {
	SubmitSpotOrder(order SpotOrder)
	CancelForBlock(block idx.Block, txIdx uint32)
}

// ContractMatcher matches leveraged contract orders and tracks open
// positions.
type ContractMatcher interface {
	SubmitContractOrder(order ContractOrder)
	CancelEverything(contractID uint32, sender string)
	ClosePosition(sender string, contractID, collateral uint32)
	// MarketPrice returns the last traded price of a contract, zero when
	// the contract never traded.
	MarketPrice(contractID uint32) uint64
}

// TradeRecorder keeps the trade ledger consumed by reporting tools.
type TradeRecorder interface {
	RecordTrade(txID common.Hash, sender string, block idx.Block)
}

// Config carries engine construction parameters.
type Config struct {
	// DayBlocks is the number of blocks in the channel expiry-extension
	// window.
	DayBlocks idx.Block
	// RewardInitBlock anchors the node reward curve.
	RewardInitBlock idx.Block
}

// DefaultConfig returns the production engine parameters.
func DefaultConfig() Config {
	return Config{
		DayBlocks:       576,
		RewardInitBlock: 100,
	}
}

// Engine applies decoded envelopes to the state books. One transaction
// is processed at a time under an exclusive critical section; within a
// transition, registry reads precede ledger mutations.
type Engine struct {
	mu sync.Mutex

	books *state.Books
	gate  *consensus.State
	chain ChainReader

	spot      SpotMatcher
	contracts ContractMatcher
	trades    TradeRecorder

	dex    *dexBook
	reward *nodeReward

	cfg Config
	log *logrus.Entry
}

// New wires an engine. The matcher and recorder collaborators may be
// nil; the corresponding intents are then dropped after the books are
// mutated.
func New(books *state.Books, gate *consensus.State, chain ChainReader, cfg Config) *Engine {
	return &Engine{
		books:  books,
		gate:   gate,
		chain:  chain,
		dex:    newDexBook(),
		reward: newNodeReward(cfg.RewardInitBlock),
		cfg:    cfg,
		log:    logrus.WithField("module", "engine"),
	}
}

// SetMatchers attaches the order-matching collaborators.
func (e *Engine) SetMatchers(spot SpotMatcher, contracts ContractMatcher) {
	e.spot = spot
	e.contracts = contracts
}

// SetTradeRecorder attaches the trade ledger collaborator.
func (e *Engine) SetTradeRecorder(t TradeRecorder) {
	e.trades = t
}

// Books exposes the state books, for the block-connection driver and
// query surfaces.
func (e *Engine) Books() *state.Books { return e.books }

// Gate exposes the consensus gate.
func (e *Engine) Gate() *consensus.State { return e.gate }

// Process runs the transition of one decoded envelope. It returns
// Success or a negative rejection code; in either case the books are
// consistent. It panics with an InvariantError when a mutation fails
// after its preconditions passed.
func (e *Engine) Process(env envelope.Envelope) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.dispatch(env)
	if res.Rejected() {
		h := env.Header()
		e.log.WithFields(logrus.Fields{
			"type":   h.Type,
			"txid":   h.TxID.Hex(),
			"sender": h.Sender,
			"block":  h.Block,
			"code":   int(res),
		}).Debug("transaction rejected")
	}
	return res
}

func (e *Engine) dispatch(env envelope.Envelope) Result {
	switch tx := env.(type) {
	case *envelope.SimpleSend:
		return e.applySimpleSend(tx)
	case *envelope.SendAll:
		return e.applySendAll(tx)
	case *envelope.SendVesting:
		return e.applySendVesting(tx)
	case *envelope.CreatePropertyFixed:
		return e.applyCreatePropertyFixed(tx)
	case *envelope.CreatePropertyVariable:
		return e.applyCreatePropertyVariable(tx)
	case *envelope.CloseCrowdsale:
		return e.applyCloseCrowdsale(tx)
	case *envelope.CreatePropertyManaged:
		return e.applyCreatePropertyManaged(tx)
	case *envelope.GrantTokens:
		return e.applyGrantTokens(tx)
	case *envelope.RevokeTokens:
		return e.applyRevokeTokens(tx)
	case *envelope.ChangeIssuer:
		return e.applyChangeIssuer(tx)
	case *envelope.TradeOffer:
		return e.applyTradeOffer(tx)
	case *envelope.DExBuyOffer:
		return e.applyDExBuyOffer(tx)
	case *envelope.AcceptOfferBTC:
		return e.applyAcceptOffer(tx)
	case *envelope.DExPayment:
		return e.applyDExPayment(tx)
	case *envelope.MetaDExTrade:
		return e.applyMetaDExTrade(tx)
	case *envelope.CancelOrdersByBlock:
		return e.applyCancelOrdersByBlock(tx)
	case *envelope.CreateContract:
		return e.applyCreateContract(tx)
	case *envelope.ContractDexTrade:
		return e.applyContractDexTrade(tx)
	case *envelope.CancelEcosystem:
		return e.applyCancelEcosystem(tx)
	case *envelope.ClosePosition:
		return e.applyClosePosition(tx)
	case *envelope.CreatePegged:
		return e.applyCreatePegged(tx)
	case *envelope.SendPegged:
		return e.applySendPegged(tx)
	case *envelope.RedeemPegged:
		return e.applyRedeemPegged(tx)
	case *envelope.CreateOracleContract:
		return e.applyCreateOracleContract(tx)
	case *envelope.ChangeOracleRef:
		return e.applyChangeOracleRef(tx)
	case *envelope.SetOracle:
		return e.applySetOracle(tx)
	case *envelope.OracleBackup:
		return e.applyOracleBackup(tx)
	case *envelope.CloseOracle:
		return e.applyCloseOracle(tx)
	case *envelope.CommitChannel:
		return e.applyCommitChannel(tx)
	case *envelope.WithdrawalFromChannel:
		return e.applyWithdrawal(tx)
	case *envelope.InstantTrade:
		return e.applyInstantTrade(tx)
	case *envelope.UpdatePNL:
		return e.applyUpdatePNL(tx)
	case *envelope.Transfer:
		return e.applyTransfer(tx)
	case *envelope.CreateChannel:
		return e.applyCreateChannel(tx)
	case *envelope.ContractInstant:
		return e.applyContractInstant(tx)
	case *envelope.NewIdRegistration:
		return e.applyNewIdRegistration(tx)
	case *envelope.UpdateIdRegistration:
		return e.applyUpdateIdRegistration(tx)
	case *envelope.Attestation:
		return e.applyAttestation(tx)
	case *envelope.Activation:
		return e.applyActivation(tx)
	case *envelope.Deactivation:
		return e.applyDeactivation(tx)
	case *envelope.Alert:
		return e.applyAlert(tx)
	default:
		return ResultTypeNotAllowed
	}
}

// gateAllows re-checks the (type, version, height) gate inside a handler.
func (e *Engine) gateAllows(h *envelope.Meta) bool {
	return e.gate.IsTransactionTypeAllowed(h.Block, h.Type, h.Version)
}

// blockHash resolves the block of the transaction against the chain
// index. Handlers that stamp registry entries require it.
func (e *Engine) blockHash(h *envelope.Meta) (common.Hash, bool) {
	if e.chain == nil {
		return common.Hash{}, false
	}
	return e.chain.BlockHash(h.Block)
}

// mustUpdate applies a ledger delta whose preconditions already passed.
func (e *Engine) mustUpdate(op, address string, property uint32, class state.BalanceClass, delta int64) {
	if !e.books.Ledger.Update(address, property, class, delta) {
		fatalf(op, "ledger update failed: address=%s property=%d class=%s delta=%d",
			address, property, class, delta)
	}
}

// recordTrade hands the transaction to the trade ledger, when attached.
func (e *Engine) recordTrade(h *envelope.Meta) {
	if e.trades != nil {
		e.trades.RecordTrade(h.TxID, h.Sender, h.Block)
	}
}
