package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction is a proposed trade side. The zero value means no direction.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	None Direction = ""
)

// Opposite returns the other side; None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return None
	}
}

// ParseDirection accepts "BUY"/"SELL" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return None, fmt.Errorf("unknown direction %q", s)
}

// ZoneSide tags a zone as demand (bullish) or supply (bearish).
type ZoneSide string

const (
	Demand ZoneSide = "demand"
	Supply ZoneSide = "supply"
)

// SideFor returns the zone side a direction trades from.
func SideFor(d Direction) ZoneSide {
	if d == Sell {
		return Supply
	}
	return Demand
}

// Zone is a price interval derived from a consolidation-then-breakout window.
type Zone struct {
	Low       float64
	High      float64
	Side      ZoneSide
	Timeframe Timeframe
}

// Mid returns the midpoint of the interval.
func (z Zone) Mid() float64 { return (z.Low + z.High) / 2 }

// Contains reports whether price lies within [Low-tol, High+tol].
func (z Zone) Contains(price, tol float64) bool {
	return z.Low-tol <= price && price <= z.High+tol
}

func (z Zone) String() string {
	return fmt.Sprintf("%s %s %.5f -> %.5f", z.Timeframe, z.Side, z.Low, z.High)
}

// PatternMatch names a detected pattern and the side it implies (None when neutral).
type PatternMatch struct {
	Name      string
	Direction Direction
}

// VerdictStatus is the outcome for one timeframe of a reversal vote.
type VerdictStatus string

const (
	VerdictConfirmed    VerdictStatus = "confirmed"
	VerdictRejected     VerdictStatus = "rejected"
	VerdictInsufficient VerdictStatus = "insufficient-data"
)

// TimeframeVerdict is the audit record for one timeframe.
type TimeframeVerdict struct {
	Timeframe Timeframe
	Status    VerdictStatus
	Reasons   []string
}

// Consensus is the cross-timeframe reversal result.
type Consensus struct {
	Symbol    string
	Direction Direction
	Quorum    int
	Confirmed int
	Verdicts  []TimeframeVerdict
}

// Passed reports whether the confirmed count reached the quorum.
func (c *Consensus) Passed() bool {
	return c != nil && c.Confirmed >= c.Quorum
}

// ZoneScan is the result of the multi-timeframe zone fallback scan.
type ZoneScan struct {
	Direction    Direction
	Price        float64
	Tolerance    float64
	Timeframe    Timeframe // empty when no timeframe confirmed
	Demand       []Zone
	Supply       []Zone
	Zone         *Zone
	Confirmation string
	Nearest      *Zone // diagnostics only
}

// Matched reports whether a timeframe confirmed a zone touch.
func (s *ZoneScan) Matched() bool {
	return s != nil && s.Timeframe != ""
}

// SideZones returns the zones on the side the scan direction trades from.
func (s *ZoneScan) SideZones() []Zone {
	if s == nil {
		return nil
	}
	if s.Direction == Sell {
		return s.Supply
	}
	return s.Demand
}

// Reason is one weighted line of a decision's justification.
type Reason struct {
	Text   string
	Weight float64
}

// Decision is the accepted output of one evaluation.
type Decision struct {
	ID            string
	Symbol        string
	Direction     Direction
	Confidence    float64 // 0..1
	Price         float64
	ZoneTimeframe Timeframe
	Reasons       []Reason
	CreatedAt     time.Time
}

// Percent returns the confidence on a 0-100 display scale.
func (d *Decision) Percent() float64 {
	return d.Confidence * 100
}

// Stage names the orchestrator gate an evaluation ended on.
type Stage string

const (
	StageData         Stage = "data"
	StageDirection    Stage = "direction"
	StageConflict     Stage = "conflict"
	StageThreshold    Stage = "threshold"
	StageReversal     Stage = "reversal"
	StageZone         Stage = "zone"
	StageZoneReversal Stage = "zone-reversal"
	StageAccepted     Stage = "accepted"
)

// Evaluation records how far one symbol got through the gate sequence.
type Evaluation struct {
	Symbol    string
	Stage     Stage
	Accepted  bool
	Reason    string
	Direction Direction
	Score     float64
	Reasons   []Reason
	Consensus *Consensus
	ZoneScan  *ZoneScan
	Decision  *Decision
	At        time.Time
}
