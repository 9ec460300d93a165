package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// SetPaused pauses or resumes the clock. Either way LastTickAt moves to now
// so the next tick does not cover the paused interval.
func (s *WorldService) SetPaused(ctx context.Context, paused bool) (*models.WorldClock, error) {
	return s.updateClock(ctx, "setPaused", func(clock *models.WorldClock) error {
		clock.SetPaused(paused, s.now())
		return nil
	})
}

func (s *WorldService) SetSpeed(ctx context.Context, speed float64) (*models.WorldClock, error) {
	return s.updateClock(ctx, "setSpeed", func(clock *models.WorldClock) error {
		return clock.SetSpeed(speed)
	})
}

func (s *WorldService) FetchClock(ctx context.Context) (*models.WorldClock, error) {
	clock, err := s.db.FetchClock()
	if err != nil {
		return nil, fmt.Errorf("fetchClock: %w", notSeeded(err))
	}

	return clock, nil
}

func (s *WorldService) updateClock(ctx context.Context, op string, fn func(clock *models.WorldClock) error) (*models.WorldClock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var clock *models.WorldClock
	err := s.db.Transaction(func(tx models.IWorldStore) error {
		var err error
		clock, err = tx.FetchClock()
		if err != nil {
			return notSeeded(err)
		}

		if err := fn(clock); err != nil {
			return err
		}

		return tx.SaveClock(clock)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"state": clock.State(),
		"speed": clock.Speed,
	}).Infof("%s: clock updated", op)

	return clock, nil
}
