package models

import "time"

type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint is a confirmed local extremum. Index is the per-symbol candle sequence number.
type SwingPoint struct {
	Symbol string
	Kind   SwingKind
	Price  float64
	Index  int64
	Time   time.Time
}

type LineRole string

const (
	RoleSupport    LineRole = "SUPPORT"
	RoleResistance LineRole = "RESISTANCE"
)

// Trendline is price = Slope*index + Intercept over the candle sequence index.
type Trendline struct {
	Symbol        string
	Role          LineRole
	Slope         float64
	Intercept     float64
	Anchors       []SwingPoint
	DefinedAt     int64
	DefinedAtTime time.Time
}

func (l Trendline) ValueAt(index int64) float64 {
	return l.Slope*float64(index) + l.Intercept
}

// Stale reports whether more than maxAge candles passed since the newest anchor.
func (l Trendline) Stale(index int64, maxAge int) bool {
	return index-l.DefinedAt > int64(maxAge)
}

// Same reports whether both lines were fit through the same anchors.
func (l Trendline) Same(o Trendline) bool {
	if l.Role != o.Role || len(l.Anchors) != len(o.Anchors) {
		return false
	}
	for i := range l.Anchors {
		if l.Anchors[i].Index != o.Anchors[i].Index {
			return false
		}
	}
	return true
}
