// Package fingerprint derives fixed-length feature vectors from market
// snapshots. Both extraction paths are deterministic placeholders, not learned
// embeddings: the matching pipeline only requires determinism and fixed
// dimensionality, so a real embedding model can be swapped in behind the same
// functions without touching matching or storage.
package fingerprint

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"

	"patternwatch/internal/domain"
)

const (
	// Dim is the fixed fingerprint dimensionality. Every vector produced by
	// this package has exactly this length.
	Dim = 67

	// sampleCount is the number of resampled close prices in a candle
	// fingerprint; the remaining dims carry indicator features.
	sampleCount = 64

	indicatorPeriod = 14
)

// FromCandles extracts a fingerprint from an ordered OHLC series.
//
// Dims 0-63 are closing prices resampled down to 64 samples and min/max
// normalized to [0,1]. Dims 64-66 are indicator features: RSI(14)/100, SMA
// slope mapped to [0,1], and ATR(14) as a fraction of the last close. Never
// fails: an empty series yields the all-zero vector, and series too short for
// an indicator leave that feature at 0.
func FromCandles(candles []domain.Candle) []float64 {
	vec := make([]float64, Dim)
	if len(candles) == 0 {
		return vec
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	minClose := floats.Min(closes)
	maxClose := floats.Max(closes)
	priceRange := maxClose - minClose
	if priceRange == 0 {
		// Flat series: avoid division by zero, all samples normalize to 0
		priceRange = 1
	}

	// Resample by striding every floor(len/N)-th close; series shorter than
	// N leave the trailing samples at 0.
	step := len(closes) / sampleCount
	if step < 1 {
		step = 1
	}
	for i := 0; i < sampleCount; i++ {
		idx := i * step
		if idx >= len(closes) {
			break
		}
		vec[i] = (closes[idx] - minClose) / priceRange
	}

	vec[sampleCount] = rsiFeature(closes)
	vec[sampleCount+1] = slopeFeature(closes)
	vec[sampleCount+2] = atrFeature(candles, closes)

	return vec
}

// FromImage extracts a fingerprint from raw image bytes by sampling Dim
// evenly spaced byte offsets and normalizing each to [0,1]. Same bytes always
// produce the same vector; empty input yields the all-zero vector.
func FromImage(data []byte) []float64 {
	vec := make([]float64, Dim)
	if len(data) == 0 {
		return vec
	}

	step := len(data) / Dim
	if step < 1 {
		step = 1
	}
	for i := 0; i < Dim; i++ {
		idx := i * step
		if idx >= len(data) {
			break
		}
		vec[i] = float64(data[idx]) / 255.0
	}

	return vec
}

// rsiFeature returns the latest RSI(14) scaled to [0,1], or 0 when the series
// is too short
func rsiFeature(closes []float64) float64 {
	if len(closes) < indicatorPeriod+1 {
		return 0
	}
	rsi := talib.Rsi(closes, indicatorPeriod)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return 0
	}
	return last / 100.0
}

// slopeFeature compares the last close against the latest SMA(14) and maps the
// relative distance onto [0,1] with 0.5 meaning price sits on the average.
// The distance is clamped at +/-10% so one outlier bar cannot saturate it.
func slopeFeature(closes []float64) float64 {
	if len(closes) < indicatorPeriod {
		return 0
	}
	sma := talib.Sma(closes, indicatorPeriod)
	lastSMA := sma[len(sma)-1]
	lastClose := closes[len(closes)-1]
	if math.IsNaN(lastSMA) || lastSMA == 0 {
		return 0
	}

	rel := (lastClose - lastSMA) / lastSMA
	if rel > 0.1 {
		rel = 0.1
	} else if rel < -0.1 {
		rel = -0.1
	}
	return 0.5 + rel*5 // [-0.1, 0.1] -> [0, 1]
}

// atrFeature returns ATR(14) as a fraction of the last close, clamped to [0,1]
func atrFeature(candles []domain.Candle, closes []float64) float64 {
	if len(candles) < indicatorPeriod+1 {
		return 0
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
	}

	atr := talib.Atr(highs, lows, closes, indicatorPeriod)
	last := atr[len(atr)-1]
	lastClose := closes[len(closes)-1]
	if math.IsNaN(last) || lastClose == 0 {
		return 0
	}

	frac := last / lastClose
	if frac > 1 {
		frac = 1
	} else if frac < 0 {
		frac = 0
	}
	return frac
}
