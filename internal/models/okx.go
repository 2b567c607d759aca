package models

type Instrument struct {
	InstID string `json:"instId"`
	TickSz string `json:"tickSz"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	CtVal  string `json:"ctVal"`
	State  string `json:"state"`
}

// VenuePosition is a position as reported by the exchange.
type VenuePosition struct {
	Symbol   string
	Side     Side
	Size     float64
	AvgPrice float64
}
