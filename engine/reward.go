package engine

import (
	"math"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/tradelayer/go-tradelayer/consensus"
	"github.com/tradelayer/go-tradelayer/state"
	"github.com/tradelayer/go-tradelayer/utils/arith"
)

// Node reward curve parameters. The curve ramps up for the first 100k
// blocks, decays until 220k, then follows a long tail that periodically
// sheds one extra satoshi.
const (
	rewardRampEnd  = 100000
	rewardDecayEnd = 220000

	rewardBase      = 0.1
	compoundRate    = 1.00002303
	decayRate       = 0.99998
	longTailDecay   = 0.99999359
	longTailSatoshi = int64(1)
)

// nodeReward computes the per-trade node reward. The boundary rewards
// of the first two regimes seed the next one, so the curve is continuous
// in expectation.
type nodeReward struct {
	mu        sync.Mutex
	initBlock idx.Block

	rampFinal  int64
	decayFinal int64
}

func newNodeReward(initBlock idx.Block) *nodeReward {
	return &nodeReward{initBlock: initBlock}
}

// at returns the reward amount for a trade at the given block, zero
// before the curve starts.
func (r *nodeReward) at(block idx.Block) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if block <= r.initBlock {
		return 0
	}

	switch {
	case block <= rewardRampEnd:
		// rewardBase is in whole coins; the satoshi scale applies once
		// here and the later regimes inherit it through the seeds
		up := rewardBase * float64(arith.COIN) * math.Pow(compoundRate, float64(block-r.initBlock))
		reward := doubleToInt64(up)
		if block == rewardRampEnd {
			r.rampFinal = reward
		}
		return reward

	case block <= rewardDecayEnd:
		down := float64(r.rampFinal) * math.Pow(decayRate, float64(block-(r.initBlock+rewardRampEnd)))
		reward := doubleToInt64(down)
		if block == rewardDecayEnd {
			r.decayFinal = reward
		}
		return reward

	default:
		down := float64(r.decayFinal) * math.Pow(longTailDecay, float64(block-(r.initBlock+rewardDecayEnd)))
		return losingSatoshiLongTail(block, doubleToInt64(down))
	}
}

// losingSatoshiLongTail sheds one satoshi from the reward at periodic
// blocks, thinning the tail over five ranges of increasing sparsity.
func losingSatoshiLongTail(block idx.Block, reward int64) int64 {
	n := uint64(block)
	shed := (n > 220000 && n <= 720000 && n%2 == 0) ||
		(n > 720000 && n <= 1500000 && n%3 == 0) ||
		(n > 1500000 && n <= 7500000 && n%4 == 0) ||
		(n > 7500000 && n <= 15000000 && n%5 == 0) ||
		(n > 15000000 && n <= 30000000 && n%6 == 0)
	if shed {
		reward -= longTailSatoshi
	}
	return reward
}

func doubleToInt64(v float64) int64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}

// payNodeReward credits the curve amount of the native token to the
// trading address. Inactive while the node reward feature is off.
func (e *Engine) payNodeReward(sender string, block idx.Block) {
	if !e.gate.IsFeatureActivated(consensus.FeatureNodeReward, block) {
		return
	}
	amount := e.reward.at(block)
	if amount <= 0 {
		return
	}
	e.mustUpdate("node reward", sender, state.PropertyALL, state.Available, amount)
}
