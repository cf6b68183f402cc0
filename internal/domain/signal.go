package domain

// Direction of a position.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for LONG, -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// Signal is an entry signal produced by an injected signal source.
// How signals are generated is outside the engine; the source is treated
// as an opaque oracle.
type Signal struct {
	Direction  Direction
	Confidence float64 // [0,1]
	StopLoss   float64 // absolute price
	TakeProfit float64 // absolute price
}
