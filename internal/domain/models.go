// Package domain provides core domain models and types.
package domain

import "fmt"

// Timeframe represents a candle timeframe
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// AllTimeframes lists every supported timeframe in ascending order
var AllTimeframes = []Timeframe{Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d}

// Valid reports whether the timeframe is one of the supported set
func (t Timeframe) Valid() bool {
	switch t {
	case Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d:
		return true
	}
	return false
}

// Direction represents the intended trade direction of a pattern.
// The empty string means "unspecified".
type Direction string

const (
	DirectionLong        Direction = "long"
	DirectionShort       Direction = "short"
	DirectionUnspecified Direction = ""
)

// Valid reports whether the direction is one of the supported set
func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionUnspecified:
		return true
	}
	return false
}

// supportedPairs is the set of currency pairs patterns can watch.
// Kept as a map for O(1) validation at pattern creation.
var supportedPairs = map[string]bool{
	"EURUSD": true,
	"GBPUSD": true,
	"USDJPY": true,
	"USDCHF": true,
	"AUDUSD": true,
	"USDCAD": true,
	"NZDUSD": true,
	"EURGBP": true,
	"EURJPY": true,
	"GBPJPY": true,
	"XAUUSD": true,
	"BTCUSD": true,
	"ETHUSD": true,
}

// ValidPair reports whether the currency pair is supported
func ValidPair(pair string) bool {
	return supportedPairs[pair]
}

// SupportedPairs returns the supported currency pairs (unordered)
func SupportedPairs() []string {
	pairs := make([]string, 0, len(supportedPairs))
	for p := range supportedPairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// Candle represents a single OHLC bar
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Validate checks basic OHLC consistency
func (c Candle) Validate() error {
	if c.High < c.Low {
		return fmt.Errorf("candle high %f below low %f", c.High, c.Low)
	}
	return nil
}
