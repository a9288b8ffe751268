package engine

import (
	"math"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// recordingContractMatcher captures the contract-side intents.
type recordingContractMatcher struct {
	orders    []ContractOrder
	cancelled []uint32
	closed    []uint32
	price     uint64
}

func (m *recordingContractMatcher) SubmitContractOrder(o ContractOrder) {
	m.orders = append(m.orders, o)
}
func (m *recordingContractMatcher) CancelEverything(contractID uint32, sender string) {
	m.cancelled = append(m.cancelled, contractID)
}
func (m *recordingContractMatcher) ClosePosition(sender string, contractID, collateral uint32) {
	m.closed = append(m.closed, contractID)
}
func (m *recordingContractMatcher) MarketPrice(contractID uint32) uint64 { return m.price }

// createContract registers a futures contract on collateral. A zero
// expiration makes it perpetual.
func createContract(t *testing.T, e *Engine, issuer, name string, collateral uint32, expiration uint32) uint32 {
	t.Helper()
	id := e.Books().Registry.NextID()
	res := e.Process(&envelope.CreateContract{
		Meta:                  meta(envelope.TypeCreateContract, issuer, "", 100),
		Numerator:             1,
		Denominator:           4,
		Name:                  name,
		BlocksUntilExpiration: expiration,
		NotionalSize:          1,
		CollateralCurrency:    collateral,
		MarginRequirement:     uint64(arith.COIN),
	})
	require.Equal(t, Success, res)
	return id
}

func TestCreateContract(t *testing.T) {
	require := require.New(t)

	e := newTestEngine(t)
	coll := issueFixed(t, e, "alice", 10*arith.COIN)

	t.Run("expiring contract", func(t *testing.T) {
		id := createContract(t, e, "alice", "ALL/dUSD Q3", coll, 1000)
		c, ok := e.Books().Registry.Get(id)
		require.True(ok)
		require.Equal(state.PropertyTypeNativeContract, c.PropType)
		require.True(c.IsContract())
	})

	t.Run("perpetual contract", func(t *testing.T) {
		id := createContract(t, e, "alice", "ALL/dUSD PERP", coll, 0)
		c, ok := e.Books().Registry.Get(id)
		require.True(ok)
		require.Equal(state.PropertyTypePerpetualContracts, c.PropType)
	})

	t.Run("lookup by name", func(t *testing.T) {
		c, ok := e.Books().Registry.FindContractByName("ALL/dUSD PERP")
		require.True(ok)
		require.Equal(state.PropertyTypePerpetualContracts, c.PropType)
	})
}

func TestContractDexTrade(t *testing.T) {
	require := require.New(t)

	e := newTestEngine(t)
	matcher := &recordingContractMatcher{}
	e.SetMatchers(nil, matcher)

	coll := issueFixed(t, e, "trader", 10*arith.COIN)
	createContract(t, e, "issuer", "ALL/dUSD PERP", coll, 0)

	trade := func(block idx.Block, amount int64, leverage uint64) Result {
		return e.Process(&envelope.ContractDexTrade{
			Meta:          meta(envelope.TypeContractDexTrade, "trader", "", block),
			ContractName:  "ALL/dUSD PERP",
			Amount:        amount,
			Leverage:      leverage,
			TradingAction: envelope.ActionBuy,
		})
	}

	t.Run("margin moves to reserve", func(t *testing.T) {
		// 10 contracts at 1 coin margin each, 2x leverage
		require.Equal(Success, trade(100, 10, 2))
		require.Equal(int64(5*arith.COIN), e.Books().Ledger.GetBalance("trader", coll, state.Available))
		require.Equal(int64(5*arith.COIN), e.Books().Ledger.GetBalance("trader", coll, state.ContractDexMargin))
		require.Len(matcher.orders, 1)
		require.Equal(int64(10), matcher.orders[0].Amount)
	})

	t.Run("insufficient collateral", func(t *testing.T) {
		require.Equal(ResultInsufficientFunds, trade(100, 100, 1))
		require.Equal(int64(5*arith.COIN), e.Books().Ledger.GetBalance("trader", coll, state.Available))
	})

	t.Run("unknown contract", func(t *testing.T) {
		res := e.Process(&envelope.ContractDexTrade{
			Meta:         meta(envelope.TypeContractDexTrade, "trader", "", 100),
			ContractName: "NO SUCH",
			Amount:       1,
			Leverage:     1,
		})
		require.Equal(ResultSPPropertyNotFound, res)
	})

	t.Run("expired window", func(t *testing.T) {
		createContract(t, e, "issuer", "ALL/dUSD Q3", coll, 50)
		res := e.Process(&envelope.ContractDexTrade{
			Meta:         meta(envelope.TypeContractDexTrade, "trader", "", 200),
			ContractName: "ALL/dUSD Q3",
			Amount:       1,
			Leverage:     1,
		})
		require.Equal(ResultContractWindowClosed, res)
	})

	t.Run("cancel and close reach the matcher", func(t *testing.T) {
		c, _ := e.Books().Registry.FindContractByName("ALL/dUSD PERP")
		require.Equal(Success, e.Process(&envelope.CancelEcosystem{
			Meta:       meta(envelope.TypeCancelEcosystem, "trader", "", 100),
			ContractID: c.ID,
		}))
		require.Equal(Success, e.Process(&envelope.ClosePosition{
			Meta:       meta(envelope.TypeClosePosition, "trader", "", 100),
			ContractID: c.ID,
		}))
		require.Equal([]uint32{c.ID}, matcher.cancelled)
		require.Equal([]uint32{c.ID}, matcher.closed)
	})
}

func TestContractDexTradeDustPosition(t *testing.T) {
	require := require.New(t)

	e := newTestEngine(t)
	matcher := &recordingContractMatcher{}
	e.SetMatchers(nil, matcher)

	coll := issueFixed(t, e, "trader", 10*arith.COIN)
	require.Equal(Success, e.Process(&envelope.CreateContract{
		Meta:               meta(envelope.TypeCreateContract, "issuer", "", 100),
		Numerator:          1,
		Denominator:        4,
		Name:               "TINY",
		NotionalSize:       1,
		CollateralCurrency: coll,
		MarginRequirement:  1,
	}))

	// one contract at minimal margin and 2x leverage rounds to a zero
	// reserve; nothing locks but the order still reaches the matcher
	res := e.Process(&envelope.ContractDexTrade{
		Meta:          meta(envelope.TypeContractDexTrade, "trader", "", 100),
		ContractName:  "TINY",
		Amount:        1,
		Leverage:      2,
		TradingAction: envelope.ActionBuy,
	})
	require.Equal(Success, res)
	require.Equal(int64(10*arith.COIN), e.Books().Ledger.GetBalance("trader", coll, state.Available))
	require.Equal(int64(0), e.Books().Ledger.GetBalance("trader", coll, state.ContractDexMargin))
	require.Len(matcher.orders, 1)
}

func TestPeggedCurrency(t *testing.T) {
	require := require.New(t)

	e := newTestEngine(t)
	coll := issueFixed(t, e, "shorter", 10*arith.COIN)
	contract := createContract(t, e, "issuer", "ALL/dUSD PERP", coll, 0)

	// short exposure backing the mint
	require.True(e.Books().Ledger.Update("shorter", contract, state.NegativeBalance, 2*arith.COIN))

	var pegged uint32

	t.Run("mint locks collateral and short exposure", func(t *testing.T) {
		pegged = e.Books().Registry.NextID()
		res := e.Process(&envelope.CreatePegged{
			Meta:       meta(envelope.TypeCreatePegged, "shorter", "", 100),
			PropType:   state.PropertyTypePegged,
			Name:       "dUSD",
			Property:   coll,
			ContractID: contract,
			Amount:     2 * arith.COIN,
		})
		require.Equal(Success, res)

		require.Equal(int64(2*arith.COIN), e.Books().Ledger.GetBalance("shorter", pegged, state.Available))
		require.Equal(int64(0), e.Books().Ledger.GetBalance("shorter", contract, state.NegativeBalance))
		require.Equal(int64(2*arith.COIN), e.Books().Ledger.GetBalance("shorter", contract, state.ContractDexReserve))
		require.Equal(int64(8*arith.COIN), e.Books().Ledger.GetBalance("shorter", coll, state.Available))
		require.Equal(int64(2*arith.COIN), e.Books().Ledger.GetBalance("shorter", coll, state.ContractDexReserve))

		p, ok := e.Books().Registry.Get(pegged)
		require.True(ok)
		require.Equal(state.PropertyTypePegged, p.PropType)
		require.Equal(int64(2*arith.COIN), p.NumTokens)
		require.Equal("N 1 - 2", p.Series)
	})

	t.Run("mint without exposure rejected", func(t *testing.T) {
		res := e.Process(&envelope.CreatePegged{
			Meta:       meta(envelope.TypeCreatePegged, "shorter", "", 100),
			PropType:   state.PropertyTypePegged,
			Name:       "dUSD",
			Property:   coll,
			ContractID: contract,
			Amount:     2 * arith.COIN,
		})
		require.Equal(ResultInsufficientContracts, res)
	})

	t.Run("pegged moves like any token", func(t *testing.T) {
		res := e.Process(&envelope.SendPegged{
			Meta:     meta(envelope.TypeSendPegged, "shorter", "holder", 100),
			Property: pegged,
			Amount:   arith.COIN,
		})
		require.Equal(Success, res)
		require.Equal(int64(arith.COIN), e.Books().Ledger.GetBalance("holder", pegged, state.Available))
	})

	t.Run("holder without reserves cannot redeem", func(t *testing.T) {
		res := e.Process(&envelope.RedeemPegged{
			Meta:       meta(envelope.TypeRedeemPegged, "holder", "", 100),
			Property:   pegged,
			ContractID: contract,
			Amount:     arith.COIN,
		})
		require.Equal(ResultInsufficientContracts, res)
		require.Equal(int64(arith.COIN), e.Books().Ledger.GetBalance("holder", pegged, state.Available))
	})

	t.Run("redeem releases collateral and reopens exposure", func(t *testing.T) {
		res := e.Process(&envelope.RedeemPegged{
			Meta:       meta(envelope.TypeRedeemPegged, "shorter", "", 100),
			Property:   pegged,
			ContractID: contract,
			Amount:     arith.COIN,
		})
		require.Equal(Success, res)

		require.Equal(int64(0), e.Books().Ledger.GetBalance("shorter", pegged, state.Available))
		require.Equal(int64(arith.COIN), e.Books().Ledger.GetBalance("shorter", contract, state.ContractDexReserve))
		require.Equal(int64(arith.COIN), e.Books().Ledger.GetBalance("shorter", contract, state.NegativeBalance))
		require.Equal(int64(9*arith.COIN), e.Books().Ledger.GetBalance("shorter", coll, state.Available))
		require.Equal(int64(arith.COIN), e.Books().Ledger.GetBalance("shorter", coll, state.ContractDexReserve))

		p, _ := e.Books().Registry.Get(pegged)
		require.Equal(int64(arith.COIN), p.NumTokens)
	})
}

func TestPeggedMintOverflow(t *testing.T) {
	require := require.New(t)

	e := newTestEngine(t)
	coll := issueFixed(t, e, "shorter", 10*arith.COIN)
	contract := e.Books().Registry.Put(&state.Property{
		Issuer:             "issuer",
		PropType:           state.PropertyTypePerpetualContracts,
		Name:               "HUGE",
		NotionalSize:       uint64(math.MaxInt64),
		CollateralCurrency: coll,
	})
	require.True(e.Books().Ledger.Update("shorter", contract, state.NegativeBalance, arith.COIN))

	res := e.Process(&envelope.CreatePegged{
		Meta:       meta(envelope.TypeCreatePegged, "shorter", "", 100),
		PropType:   state.PropertyTypePegged,
		Name:       "dHUGE",
		Property:   coll,
		ContractID: contract,
		Amount:     arith.MaxInt8Bytes,
	})
	require.Equal(ResultSPValueOutOfRange, res)
	require.Equal(int64(10*arith.COIN), e.Books().Ledger.GetBalance("shorter", coll, state.Available))
}
