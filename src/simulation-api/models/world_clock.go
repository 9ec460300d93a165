package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultSpeed = 10.0

type ClockState string

const (
	ClockStateRunning ClockState = "running"
	ClockStatePaused  ClockState = "paused"
)

type WorldClock struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SimTime    time.Time `json:"sim_time"`
	Speed      float64   `json:"speed" gorm:"not null"`
	Paused     bool      `json:"paused"`
	LastTickAt time.Time `json:"last_tick_at"`
	TickCount  int64     `json:"tick_count"`
}

func NewWorldClock(simTime time.Time, speed float64, now time.Time) *WorldClock {
	return &WorldClock{
		ID:         uuid.New(),
		SimTime:    simTime,
		Speed:      speed,
		LastTickAt: now,
	}
}

func (c *WorldClock) Clone() *WorldClock {
	cp := *c
	return &cp
}

func (c *WorldClock) State() ClockState {
	if c.Paused {
		return ClockStatePaused
	}

	return ClockStateRunning
}

// SetPaused moves the clock between running and paused. LastTickAt is reset
// either way so resuming does not replay the paused interval.
func (c *WorldClock) SetPaused(paused bool, now time.Time) {
	c.Paused = paused
	c.LastTickAt = now
}

func (c *WorldClock) SetSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}

	c.Speed = speed
	return nil
}

// SimElapsed is the simulated time covered by a tick at now. It is not capped:
// a long outage becomes one large step.
func (c *WorldClock) SimElapsed(now time.Time) time.Duration {
	wall := now.Sub(c.LastTickAt)
	if wall <= 0 {
		return 0
	}

	return time.Duration(float64(wall) * c.Speed)
}

func (c *WorldClock) Advance(now time.Time, simElapsed time.Duration) {
	c.SimTime = c.SimTime.Add(simElapsed)
	c.LastTickAt = now
	c.TickCount++
}

// ElapsedDays converts a simulated duration into the fractional days used
// by the price process.
func ElapsedDays(d time.Duration) float64 {
	return d.Seconds() / 86400
}
