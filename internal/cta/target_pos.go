package cta

import "github.com/rxtech-lab/pulse-trading/internal/types"

// DefaultTickAdd is the price bias applied when chasing fills through the
// reconciler: buys pay up by this much over the ask, sells undercut the bid.
const DefaultTickAdd = 1.0

// TargetPosOrderer converts a desired net position into orders. A strategy
// feeds it market data and order updates, states its target with SetTarget,
// and the reconciler works the difference down: it cancels whatever it has
// outstanding, then issues fresh orders against the latest quote. In a
// backtest a reversal collapses into one merged order; live, the existing
// position is closed first and the opposite side opened on a later pass,
// and no new orders are issued while earlier ones are still working.
type TargetPosOrderer struct {
	ctx     Context
	tickAdd float64

	target  float64
	hasTick bool
	hasBar  bool
	tick    types.Tick
	bar     types.Bar

	orderIDs []string
}

// NewTargetPosOrderer creates a reconciler acting through ctx. tickAdd <= 0
// falls back to DefaultTickAdd.
func NewTargetPosOrderer(ctx Context, tickAdd float64) *TargetPosOrderer {
	if tickAdd <= 0 {
		tickAdd = DefaultTickAdd
	}

	return &TargetPosOrderer{
		ctx:     ctx,
		tickAdd: tickAdd,
	}
}

// Target returns the current desired net position.
func (t *TargetPosOrderer) Target() float64 {
	return t.target
}

// SetTarget records the desired net position and immediately runs one
// reconciliation pass.
func (t *TargetPosOrderer) SetTarget(target float64) {
	t.target = target
	t.Reconcile()
}

// OnTick records the latest quote and, while the instance is trading, runs a
// reconciliation pass against it. Reconciling on every tick is what lets a
// live reversal resume: the close leg retires through OnOrder and the next
// tick issues the opening leg. Call it from the strategy's OnTick before any
// signal logic.
func (t *TargetPosOrderer) OnTick(tick types.Tick) {
	t.tick = tick
	t.hasTick = true

	if t.ctx.Trading() {
		t.Reconcile()
	}
}

// OnBar records the latest bar, used for pricing when no tick has arrived.
func (t *TargetPosOrderer) OnBar(bar types.Bar) {
	t.bar = bar
	t.hasBar = true
}

// OnOrder retires finished orders from the working set. Call it from the
// strategy's OnOrder.
func (t *TargetPosOrderer) OnOrder(order types.Order) {
	if !order.Status.IsFinished() {
		return
	}

	qualifiedID := order.QualifiedID()
	for i, id := range t.orderIDs {
		if id == qualifiedID {
			t.orderIDs = append(t.orderIDs[:i], t.orderIDs[i+1:]...)

			break
		}
	}
}

// Reconcile performs one pass toward the target. It is safe to call on every
// bar; with no position gap it does nothing.
func (t *TargetPosOrderer) Reconcile() {
	t.ctx.CancelAll()

	posChange := t.target - t.ctx.Pos()
	if posChange == 0 {
		return
	}

	buyPrice, sellPrice, ok := t.prices(posChange)
	if !ok {
		return
	}

	if t.ctx.EngineType() == EngineTypeBacktest {
		// Simulated fills are immediate and unconstrained, so a reversal
		// can go out as a single merged order.
		var ids []string
		if posChange > 0 {
			ids = t.ctx.Buy(buyPrice, posChange, false)
		} else {
			ids = t.ctx.Short(sellPrice, -posChange, false)
		}
		t.orderIDs = append(t.orderIDs, ids...)

		return
	}

	// Live: wait out working orders before issuing more, and close the
	// existing position before opening the opposite side.
	if len(t.orderIDs) > 0 {
		return
	}

	pos := t.ctx.Pos()

	var ids []string

	if posChange > 0 {
		if pos < 0 {
			if posChange < -pos {
				ids = t.ctx.Cover(buyPrice, posChange, false)
			} else {
				ids = t.ctx.Cover(buyPrice, -pos, false)
			}
		} else {
			ids = t.ctx.Buy(buyPrice, posChange, false)
		}
	} else {
		if pos > 0 {
			if -posChange < pos {
				ids = t.ctx.Sell(sellPrice, -posChange, false)
			} else {
				ids = t.ctx.Sell(sellPrice, pos, false)
			}
		} else {
			ids = t.ctx.Short(sellPrice, -posChange, false)
		}
	}

	t.orderIDs = append(t.orderIDs, ids...)
}

// prices derives the aggressive limit prices for the needed side. A tick
// quote wins over a bar close; with neither there is nothing to price
// against.
func (t *TargetPosOrderer) prices(posChange float64) (buyPrice, sellPrice float64, ok bool) {
	switch {
	case t.hasTick:
		if posChange > 0 {
			buyPrice = t.tick.BestAsk() + t.tickAdd
			if t.tick.UpperLimit > 0 && buyPrice > t.tick.UpperLimit {
				buyPrice = t.tick.UpperLimit
			}
		} else {
			sellPrice = t.tick.BestBid() - t.tickAdd
			if t.tick.LowerLimit > 0 && sellPrice < t.tick.LowerLimit {
				sellPrice = t.tick.LowerLimit
			}
		}
	case t.hasBar:
		if posChange > 0 {
			buyPrice = t.bar.Close + t.tickAdd
		} else {
			sellPrice = t.bar.Close - t.tickAdd
		}
	default:
		return 0, 0, false
	}

	return buyPrice, sellPrice, true
}
