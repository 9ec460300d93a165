package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

func (s PositionSide) Validate() error {
	switch s {
	case PositionSideLong, PositionSideShort:
		return nil
	}

	return fmt.Errorf("invalid position side: %q", s)
}

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

func (s PositionStatus) Validate() error {
	switch s {
	case PositionStatusOpen, PositionStatusClosed:
		return nil
	}

	return fmt.Errorf("invalid position status: %q", s)
}

type Position struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Sequence     int64          `json:"sequence" gorm:"index;not null"`
	Ticker       string         `json:"ticker" gorm:"index;not null"`
	Side         PositionSide   `json:"side" gorm:"not null"`
	Quantity     int            `json:"quantity" gorm:"not null"`
	EntryPrice   float64        `json:"entry_price" gorm:"type:numeric;not null"`
	CurrentPrice float64        `json:"current_price" gorm:"type:numeric;not null"`
	PnL          float64        `json:"pnl" gorm:"column:pnl;type:numeric;not null"`
	Status       PositionStatus `json:"status" gorm:"index;not null"`
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
	Reasoning    string         `json:"reasoning,omitempty"`
}

func NewPosition(ticker string, side PositionSide, quantity int, price float64, openedAt time.Time, reasoning string, sequence int64) *Position {
	return &Position{
		ID:           uuid.New(),
		Sequence:     sequence,
		Ticker:       ticker,
		Side:         side,
		Quantity:     quantity,
		EntryPrice:   price,
		CurrentPrice: price,
		Status:       PositionStatusOpen,
		OpenedAt:     openedAt,
		Reasoning:    reasoning,
	}
}

func (p *Position) Clone() *Position {
	c := *p
	if p.ClosedAt != nil {
		at := *p.ClosedAt
		c.ClosedAt = &at
	}

	return &c
}

// Cost is the capital allocated to the position when it was opened.
func (p *Position) Cost() float64 {
	return p.EntryPrice * float64(p.Quantity)
}

// PnLAt values the position at mark: shorts profit when the price falls,
// longs when it rises.
func (p *Position) PnLAt(mark float64) float64 {
	if p.Side == PositionSideShort {
		return (p.EntryPrice - mark) * float64(p.Quantity)
	}

	return (mark - p.EntryPrice) * float64(p.Quantity)
}

func (p *Position) MarkToMarket(mark float64) {
	p.CurrentPrice = mark
	p.PnL = p.PnLAt(mark)
}

// Close seals the position at mark and returns the realized P&L.
func (p *Position) Close(mark float64, at time.Time) float64 {
	p.MarkToMarket(mark)
	p.Status = PositionStatusClosed
	p.ClosedAt = &at
	return p.PnL
}

// MarkToMarket revalues every open position against prices, keyed by ticker.
// Closed positions and tickers without a price are skipped. The positions
// that changed are returned.
func MarkToMarket(positions []*Position, prices map[string]float64) []*Position {
	var marked []*Position
	for _, p := range positions {
		if p.Status != PositionStatusOpen {
			continue
		}

		price, found := prices[p.Ticker]
		if !found {
			continue
		}

		p.MarkToMarket(price)
		marked = append(marked, p)
	}

	return marked
}

type PositionFilter struct {
	Status *PositionStatus
	Ticker string
	Side   PositionSide
}

func (f PositionFilter) Matches(p *Position) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}

	if f.Ticker != "" && p.Ticker != f.Ticker {
		return false
	}

	if f.Side != "" && p.Side != f.Side {
		return false
	}

	return true
}

func OpenPositionsFilter() PositionFilter {
	status := PositionStatusOpen
	return PositionFilter{Status: &status}
}
