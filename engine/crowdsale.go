package engine

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// bonusPrecision scales the early-bird bonus computation so fractional
// weeks survive integer arithmetic.
const bonusPrecision int64 = 1000000000000

const secondsPerWeek int64 = 7 * 24 * 3600

// calculateFundraiser computes the tokens created by one crowdsale
// participation:
//
//	created = amount * tokensPerUnit * (1 + weeksRemaining*earlyBird/100)
//
// amount is shifted by 1e8 first when the sent property is indivisible,
// so indivisible units buy whole-token multiples. The issuer receives an
// extra percentage cut on top. When the combined total would pass the
// int64 supply cap the created amounts are clamped and close is true.
func calculateFundraiser(divisibleSent bool, amount, tokensPerUnit int64, bonusSeconds int64,
	earlyBird, percentage uint8, totalCreated int64) (userTokens, issuerTokens int64, close bool) {

	units := new(big.Int).SetInt64(amount)
	if !divisibleSent {
		units.Mul(units, big.NewInt(arith.COIN))
	}

	// bonus multiplier at bonusPrecision scale
	bonus := big.NewInt(bonusPrecision)
	if bonusSeconds > 0 && earlyBird > 0 {
		weeks := new(big.Int).Mul(big.NewInt(bonusSeconds), big.NewInt(bonusPrecision))
		weeks.Quo(weeks, big.NewInt(secondsPerWeek))
		weeks.Mul(weeks, big.NewInt(int64(earlyBird)))
		weeks.Quo(weeks, big.NewInt(100))
		bonus.Add(bonus, weeks)
	}

	created := new(big.Int).Mul(units, big.NewInt(tokensPerUnit))
	created.Mul(created, bonus)
	created.Quo(created, big.NewInt(bonusPrecision))
	created.Quo(created, big.NewInt(arith.COIN))

	issuerCut := new(big.Int).Mul(created, big.NewInt(int64(percentage)))
	issuerCut.Quo(issuerCut, big.NewInt(100))

	remaining := new(big.Int).Sub(big.NewInt(math.MaxInt64), big.NewInt(totalCreated))
	combined := new(big.Int).Add(created, issuerCut)
	if combined.Cmp(remaining) >= 0 {
		close = true
		if created.Cmp(remaining) > 0 {
			created.Set(remaining)
		}
		remaining.Sub(remaining, created)
		if issuerCut.Cmp(remaining) > 0 {
			issuerCut.Set(remaining)
		}
	}

	return created.Int64(), issuerCut.Int64(), close
}

// missedIssuerBonus computes the issuer tokens a crowdsale still owes at
// close time: the configured percentage of everything participants
// created, less what the issuer already received along the way. The
// result is capped so the final supply fits an int64.
func missedIssuerBonus(c *state.Crowdsale) int64 {
	if c.Percentage == 0 {
		return 0
	}

	exact := new(big.Int).Mul(big.NewInt(c.UserCreated), big.NewInt(int64(c.Percentage)))
	exact.Quo(exact, big.NewInt(100))

	if exact.Cmp(big.NewInt(c.IssuerCreated)) < 0 {
		// rounding left the issuer slightly ahead; nothing owed
		return 0
	}
	missed := new(big.Int).Sub(exact, big.NewInt(c.IssuerCreated))

	total := new(big.Int).Add(big.NewInt(c.UserCreated), big.NewInt(c.IssuerCreated))
	room := new(big.Int).Sub(big.NewInt(math.MaxInt64), total)
	if missed.Cmp(room) > 0 {
		missed.Set(room)
	}
	return missed.Int64()
}

// participateCrowdsale is the passive side effect of an ordinary
// transfer whose receiver runs a crowdsale: the sent amount buys newly
// created tokens for the sender, plus the issuer's cut. A participation
// that reaches the supply cap closes the crowdsale in the same
// transition.
func (e *Engine) participateCrowdsale(tx *envelope.SimpleSend) Result {
	crowd := e.books.Crowdsales.Get(tx.Receiver)
	if crowd == nil {
		return ResultNoActiveCrowdsale
	}
	if crowd.DesiredProperty != tx.Property {
		return ResultWrongCrowdsaleToken
	}

	sent, ok := e.books.Registry.Get(tx.Property)
	if !ok {
		return ResultWrongCrowdsaleToken
	}
	prop, ok := e.books.Registry.Get(crowd.PropertyID)
	if !ok {
		fatalf("crowdsale", "active crowdsale names missing property %d", crowd.PropertyID)
	}

	bonusSeconds := crowd.Deadline - tx.BlockTime
	userTokens, issuerTokens, closeNow := calculateFundraiser(
		sent.IsDivisible(), tx.Amount, crowd.TokensPerUnit, bonusSeconds,
		crowd.EarlyBird, crowd.Percentage, crowd.UserCreated+crowd.IssuerCreated)

	if userTokens == 0 && issuerTokens == 0 {
		return ResultCrowdsaleZeroTokens
	}

	crowd.UserCreated += userTokens
	crowd.IssuerCreated += issuerTokens
	crowd.Database[tx.TxID] = [4]int64{tx.Amount, tx.BlockTime, userTokens, issuerTokens}

	if userTokens > 0 {
		e.mustUpdate("crowdsale", tx.Sender, crowd.PropertyID, state.Available, userTokens)
	}
	if issuerTokens > 0 {
		e.mustUpdate("crowdsale", tx.Receiver, crowd.PropertyID, state.Available, issuerTokens)
	}

	if closeNow {
		prop.MaxTokens = true
		e.closeCrowdsale(tx.Receiver, crowd, &prop, tx.TxID)
	}
	return Success
}

// closeCrowdsale folds the participation history into the property
// entry, pays the issuer's missed bonus and removes the crowdsale.
func (e *Engine) closeCrowdsale(issuer string, crowd *state.Crowdsale, prop *state.Property, closeTx common.Hash) {
	missed := missedIssuerBonus(crowd)

	prop.CloseEarly = true
	prop.CloseTx = closeTx
	prop.MissedTokens = missed
	prop.History = append(prop.History, crowd.Records()...)
	if err := e.books.Registry.Update(prop.ID, prop); err != nil {
		fatalf("crowdsale", "close update of property %d: %v", prop.ID, err)
	}

	if missed > 0 {
		e.mustUpdate("crowdsale", issuer, prop.ID, state.Available, missed)
	}
	e.books.Crowdsales.Erase(issuer)
}
