package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultInitialBalance = 2_400_000.0

type Fund struct {
	ID                   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Balance              float64   `json:"balance" gorm:"type:numeric;not null"`
	InitialBalance       float64   `json:"initial_balance" gorm:"type:numeric;not null"`
	AllocatedToPositions float64   `json:"allocated_to_positions" gorm:"type:numeric;not null"`
	LastUpdated          time.Time `json:"last_updated"`
}

func NewFund(balance float64, now time.Time) *Fund {
	return &Fund{
		ID:             uuid.New(),
		Balance:        balance,
		InitialBalance: balance,
		LastUpdated:    now,
	}
}

func (f *Fund) Clone() *Fund {
	c := *f
	return &c
}

// Available is the capital that new positions may still draw on.
func (f *Fund) Available() float64 {
	return f.Balance - f.AllocatedToPositions
}

// Allocate reserves cost for a new position. Nothing changes when the fund
// cannot cover it.
func (f *Fund) Allocate(cost float64) error {
	if cost > f.Available() {
		return fmt.Errorf("%w: need $%.2f, available: $%.2f", ErrInsufficientFunds, cost, f.Available())
	}

	f.AllocatedToPositions += cost
	return nil
}

// Release returns a closed position's entry cost and books its realized P&L.
func (f *Fund) Release(allocated, realizedPnL float64) {
	f.AllocatedToPositions -= allocated
	f.Balance += realizedPnL
}

// Drawdown is the fractional loss from the initial balance once unrealized
// P&L is counted. Gains report zero.
func (f *Fund) Drawdown(unrealizedPnL float64) float64 {
	if f.InitialBalance <= 0 {
		return 0
	}

	dd := (f.InitialBalance - (f.Balance + unrealizedPnL)) / f.InitialBalance
	if dd < 0 {
		return 0
	}

	return dd
}

type FundSummary struct {
	Fund
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	EffectiveBalance float64 `json:"effective_balance"`
	Available        float64 `json:"available"`
	Drawdown         float64 `json:"drawdown"`
	PositionCount    int     `json:"position_count"`
}

func NewFundSummary(fund *Fund, openPositions []*Position) *FundSummary {
	unrealized := 0.0
	for _, p := range openPositions {
		unrealized += p.PnL
	}

	return &FundSummary{
		Fund:             *fund,
		UnrealizedPnL:    unrealized,
		EffectiveBalance: fund.Balance + unrealized,
		Available:        fund.Available(),
		Drawdown:         fund.Drawdown(unrealized),
		PositionCount:    len(openPositions),
	}
}

type PortfolioSummary struct {
	OpenPositions      int         `json:"open_positions"`
	TotalUnrealizedPnL float64     `json:"total_unrealized_pnl"`
	ClosedPositions    int         `json:"closed_positions"`
	TotalRealizedPnL   float64     `json:"total_realized_pnl"`
	Positions          []*Position `json:"positions"`
}

func NewPortfolioSummary(open, closed []*Position) *PortfolioSummary {
	summary := &PortfolioSummary{
		OpenPositions:   len(open),
		ClosedPositions: len(closed),
		Positions:       open,
	}

	for _, p := range open {
		summary.TotalUnrealizedPnL += p.PnL
	}

	for _, p := range closed {
		summary.TotalRealizedPnL += p.PnL
	}

	return summary
}
