package recorder

import "time"

// PassEvent summarises one recompute pass over the book.
type PassEvent struct {
	PassID       string
	Version      uint64
	Positions    int
	DeployedUnit float64
	Capacity     int
	Fraction     float64
	At           time.Time
}

// PositionEvent is the trigger state of one position within a pass.
type PositionEvent struct {
	PassID       string
	Position     string
	UnitsHeld    float64
	BuyStatus    string
	BuyPrice     float64
	RescueStatus string
	RescuePrice  float64
	SellStatus   string
	BuyGear      float64
	SellGear     float64
	RecBuyGear   float64
	RecSellGear  float64
}

// ApplyEvent records an applied or canceled gear recommendation.
type ApplyEvent struct {
	Position   string
	Action     string // "applied", "no_change", "canceled"
	BuyPoints  float64
	SellPoints float64
	BuyGear    float64
	SellGear   float64
	Traits     string // comma separated trait ids
	At         time.Time
}

// Recorder persists recompute and apply history for later analysis.
type Recorder interface {
	RecordPass(evt *PassEvent, positions []PositionEvent) error
	RecordApply(evt *ApplyEvent) error
	Close() error
}
