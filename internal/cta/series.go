package cta

import (
	"math"

	"github.com/rxtech-lab/pulse-trading/internal/types"
)

// DefaultSeriesSize is the bar capacity of a BarSeries when none is given.
const DefaultSeriesSize = 100

// BarSeries is a fixed-capacity window over recent bars with indicator
// calculations on top. Strategies push every finished bar into it and gate
// their logic on Inited, which flips once the window has filled.
type BarSeries struct {
	size   int
	count  int
	opens  []float64
	highs  []float64
	lows   []float64
	closes []float64
	vols   []float64
}

// NewBarSeries creates a series holding the last size bars. size <= 0 falls
// back to DefaultSeriesSize.
func NewBarSeries(size int) *BarSeries {
	if size <= 0 {
		size = DefaultSeriesSize
	}

	return &BarSeries{
		size:   size,
		opens:  make([]float64, size),
		highs:  make([]float64, size),
		lows:   make([]float64, size),
		closes: make([]float64, size),
		vols:   make([]float64, size),
	}
}

// Push appends one bar, evicting the oldest when full.
func (s *BarSeries) Push(bar types.Bar) {
	shift(s.opens, bar.Open)
	shift(s.highs, bar.High)
	shift(s.lows, bar.Low)
	shift(s.closes, bar.Close)
	shift(s.vols, bar.Volume)

	if s.count < s.size {
		s.count++
	}
}

func shift(buf []float64, v float64) {
	copy(buf, buf[1:])
	buf[len(buf)-1] = v
}

// Inited reports whether the window has filled to capacity.
func (s *BarSeries) Inited() bool {
	return s.count >= s.size
}

// Count returns the number of bars pushed, capped at the capacity.
func (s *BarSeries) Count() int {
	return s.count
}

// Close returns the latest close price, or 0 when empty.
func (s *BarSeries) Close() float64 {
	if s.count == 0 {
		return 0
	}

	return s.closes[s.size-1]
}

// SMA returns the simple moving average of the last n closes.
func (s *BarSeries) SMA(n int) float64 {
	if n <= 0 || n > s.count {
		return 0
	}

	var sum float64
	for _, v := range s.closes[s.size-n:] {
		sum += v
	}

	return sum / float64(n)
}

// EMA returns an exponential moving average over the whole window with the
// standard 2/(n+1) smoothing.
func (s *BarSeries) EMA(n int) float64 {
	if n <= 0 || s.count == 0 {
		return 0
	}

	alpha := 2.0 / (float64(n) + 1.0)
	start := s.size - s.count

	ema := s.closes[start]
	for _, v := range s.closes[start+1:] {
		ema = alpha*v + (1-alpha)*ema
	}

	return ema
}

// Std returns the population standard deviation of the last n closes.
func (s *BarSeries) Std(n int) float64 {
	if n <= 1 || n > s.count {
		return 0
	}

	mean := s.SMA(n)

	var sq float64
	for _, v := range s.closes[s.size-n:] {
		d := v - mean
		sq += d * d
	}

	return math.Sqrt(sq / float64(n))
}

// RSI returns Wilder's relative strength index over the last n changes. The
// result sits in [0, 100]; an all-gain window returns 100.
func (s *BarSeries) RSI(n int) float64 {
	if n <= 0 || n+1 > s.count {
		return 0
	}

	var gain, loss float64

	for i := s.size - n; i < s.size; i++ {
		change := s.closes[i] - s.closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	if loss == 0 {
		return 100
	}

	rs := gain / loss

	return 100 - 100/(1+rs)
}

// CCI returns the commodity channel index over the last n bars.
func (s *BarSeries) CCI(n int) float64 {
	if n <= 0 || n > s.count {
		return 0
	}

	tp := make([]float64, n)

	var sum float64

	for i := 0; i < n; i++ {
		j := s.size - n + i
		tp[i] = (s.highs[j] + s.lows[j] + s.closes[j]) / 3
		sum += tp[i]
	}

	mean := sum / float64(n)

	var dev float64
	for _, v := range tp {
		dev += math.Abs(v - mean)
	}

	dev /= float64(n)
	if dev == 0 {
		return 0
	}

	return (tp[n-1] - mean) / (0.015 * dev)
}

// ATR returns the average true range over the last n bars.
func (s *BarSeries) ATR(n int) float64 {
	if n <= 0 || n+1 > s.count {
		return 0
	}

	var sum float64

	for i := s.size - n; i < s.size; i++ {
		tr := s.highs[i] - s.lows[i]
		if hc := math.Abs(s.highs[i] - s.closes[i-1]); hc > tr {
			tr = hc
		}

		if lc := math.Abs(s.lows[i] - s.closes[i-1]); lc > tr {
			tr = lc
		}

		sum += tr
	}

	return sum / float64(n)
}

// Boll returns the Bollinger band pair at dev standard deviations around the
// n-period simple moving average.
func (s *BarSeries) Boll(n int, dev float64) (up, down float64) {
	mid := s.SMA(n)
	width := s.Std(n) * dev

	return mid + width, mid - width
}

// Keltner returns the Keltner channel pair at dev average true ranges around
// the n-period simple moving average.
func (s *BarSeries) Keltner(n int, dev float64) (up, down float64) {
	mid := s.SMA(n)
	width := s.ATR(n) * dev

	return mid + width, mid - width
}
