package connector

// Technical indicators over a close-price series: simple moving averages and
// a 14-period RSI computed from rolling mean gain/loss.

// SMA returns the simple moving average of the last window values, or 0 when
// there are not enough values.
func SMA(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window)
}

// RSI returns the relative strength index over the given period, or 0 when
// there are not enough values. 100 means all gains, 0 all losses.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}

	var gains, losses float64
	recent := closes[len(closes)-period-1:]
	for i := 1; i < len(recent); i++ {
		delta := recent[i] - recent[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // flat series: neutral
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ChangePercent returns the day change percentage from prev to last.
func ChangePercent(prev, last float64) float64 {
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}
