package indicator

import "math"

// rsiState computes Wilder RSI incrementally. The first average is a
// simple mean of the first period deltas; afterwards the running
// averages are Wilder-smoothed.
type rsiState struct {
	period    int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	sumGain   float64
	sumLoss   float64
	deltas    int
	seeded    bool
	haveClose bool
}

func newRSIState(period int) *rsiState {
	return &rsiState{period: period}
}

// update feeds one close price and returns the RSI, or nil while
// warming up.
func (s *rsiState) update(close float64) *float64 {
	if !s.haveClose {
		s.prevClose = close
		s.haveClose = true
		return nil
	}
	delta := close - s.prevClose
	s.prevClose = close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if !s.seeded {
		s.sumGain += gain
		s.sumLoss += loss
		s.deltas++
		if s.deltas < s.period {
			return nil
		}
		s.avgGain = s.sumGain / float64(s.period)
		s.avgLoss = s.sumLoss / float64(s.period)
		s.seeded = true
	} else {
		n := float64(s.period)
		s.avgGain = (s.avgGain*(n-1) + gain) / n
		s.avgLoss = (s.avgLoss*(n-1) + loss) / n
	}

	var rsi float64
	if s.avgLoss == 0 {
		rsi = 100
	} else {
		rs := s.avgGain / s.avgLoss
		rsi = 100 - 100/(1+rs)
	}
	return &rsi
}

// atrState computes Wilder ATR incrementally over true ranges.
type atrState struct {
	period    int
	prevClose float64
	atr       float64
	sumTR     float64
	ranges    int
	seeded    bool
	haveClose bool
}

func newATRState(period int) *atrState {
	return &atrState{period: period}
}

// update feeds one bar's high/low/close and returns the ATR, or nil
// while warming up.
func (s *atrState) update(high, low, close float64) *float64 {
	tr := high - low
	if s.haveClose {
		tr = math.Max(tr, math.Max(math.Abs(high-s.prevClose), math.Abs(low-s.prevClose)))
	}
	s.prevClose = close
	s.haveClose = true

	if !s.seeded {
		s.sumTR += tr
		s.ranges++
		if s.ranges < s.period {
			return nil
		}
		s.atr = s.sumTR / float64(s.period)
		s.seeded = true
	} else {
		n := float64(s.period)
		s.atr = (s.atr*(n-1) + tr) / n
	}
	out := s.atr
	return &out
}
