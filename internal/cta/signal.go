package cta

import "github.com/rxtech-lab/pulse-trading/internal/types"

// Signal is one independent trading opinion. Signals never place orders;
// they digest market data and expose a desired net position which a
// combining strategy turns into a target.
type Signal interface {
	OnTick(tick types.Tick)
	OnBar(bar types.Bar)
	// Pos returns the position this signal currently argues for. Positive
	// is long, negative is short, zero is flat.
	Pos() float64
}

// SignalBase carries the position state for Signal implementations. Embed it
// and override the market data callbacks that matter.
type SignalBase struct {
	pos float64
}

// SetPos records the signal's desired position.
func (s *SignalBase) SetPos(pos float64) {
	s.pos = pos
}

// Pos implements Signal.
func (s *SignalBase) Pos() float64 {
	return s.pos
}

// OnTick implements Signal as a no-op.
func (s *SignalBase) OnTick(types.Tick) {}

// OnBar implements Signal as a no-op.
func (s *SignalBase) OnBar(types.Bar) {}

// CombinedPos sums the desired positions of several signals. Agreeing
// signals stack; disagreeing signals offset.
func CombinedPos(signals ...Signal) float64 {
	var total float64
	for _, s := range signals {
		total += s.Pos()
	}

	return total
}
