package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

const DefaultTickInterval = 30 * time.Second

type Ticker interface {
	Tick(ctx context.Context) (*models.TickResult, error)
}

// TickScheduler triggers a world tick at a fixed cadence. Ticks never
// overlap: a slow tick delays the next one.
type TickScheduler struct {
	world    Ticker
	interval time.Duration
	wg       *sync.WaitGroup
}

func NewTickScheduler(world Ticker, interval time.Duration, wg *sync.WaitGroup) *TickScheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	return &TickScheduler{
		world:    world,
		interval: interval,
		wg:       wg,
	}
}

func (w *TickScheduler) Start(ctx context.Context) {
	w.wg.Add(1)

	timer := time.NewTicker(w.interval)

	go func() {
		defer w.wg.Done()
		defer timer.Stop()

		log.Infof("started TickScheduler every %s", w.interval)

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping TickScheduler")
				return
			case <-timer.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *TickScheduler) runOnce(ctx context.Context) {
	result, err := w.world.Tick(ctx)
	if err != nil {
		if errors.Is(err, models.ErrWorldNotSeeded) {
			log.Warn("TickScheduler: world not seeded, skipping tick")
			return
		}

		log.Errorf("TickScheduler: %v", err)
		return
	}

	if result.Status == models.TickStatusPaused {
		log.Debug("TickScheduler: clock paused")
		return
	}

	log.WithFields(log.Fields{
		"tick":           result.TickCount,
		"sim_time":       result.SimTime,
		"elapsed_days":   result.ElapsedDays,
		"events":         len(result.Events),
		"unrealized_pnl": result.UnrealizedPnL,
	}).Info("tick complete")
}
