package models

import "time"

type TickStatus string

const (
	TickStatusPaused TickStatus = "paused"
	TickStatusTicked TickStatus = "ticked"
)

type TickResult struct {
	Status         TickStatus    `json:"status"`
	TickCount      int64         `json:"tick_count"`
	SimTime        time.Time     `json:"sim_time"`
	ElapsedDays    float64       `json:"elapsed_days,omitempty"`
	Subjects       int           `json:"subjects,omitempty"`
	ActivePatients int           `json:"active_patients,omitempty"`
	OpenPositions  int           `json:"open_positions,omitempty"`
	UnrealizedPnL  float64       `json:"unrealized_pnl,omitempty"`
	Events         []*WorldEvent `json:"events,omitempty"`
}
