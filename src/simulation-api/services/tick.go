package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// Tick advances the world by the wall-clock time since the previous tick,
// scaled by the clock speed. The whole tick commits or nothing does: a
// failed tick leaves the clock where it was so a retry covers the same
// simulated interval.
func (s *WorldService) Tick(ctx context.Context) (*models.TickResult, error) {
	ctx, span := s.tracer.Start(ctx, "WorldService.Tick")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result *models.TickResult

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		var err error
		result, err = s.tick(ctx, tx, now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("tick: %w", err)
	}

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int64("tick_count", result.TickCount),
		attribute.Int("events", len(result.Events)),
	)

	if result.Status == models.TickStatusTicked && s.ticks != nil {
		s.ticks.Add(ctx, 1)
	}

	s.publish(result.Events)
	return result, nil
}

func (s *WorldService) tick(ctx context.Context, tx models.IWorldStore, now time.Time) (*models.TickResult, error) {
	clock, err := tx.FetchClock()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrWorldNotSeeded
		}
		return nil, fmt.Errorf("failed to fetch clock: %w", err)
	}

	if clock.Paused {
		return &models.TickResult{
			Status:    models.TickStatusPaused,
			TickCount: clock.TickCount,
			SimTime:   clock.SimTime,
		}, nil
	}

	logger := log.WithContext(ctx)

	simElapsed := clock.SimElapsed(now)
	dt := models.ElapsedDays(simElapsed)
	if s.params.LargeStepWarningDays > 0 && dt > s.params.LargeStepWarningDays {
		logger.WithFields(log.Fields{
			"elapsed_days": dt,
			"tick_count":   clock.TickCount,
		}).Warn("tick covers a large simulated interval; prices and vitals move in a single step")
	}

	tickCount := float64(clock.TickCount)
	simTime := clock.SimTime.Add(simElapsed)

	openPositions, err := tx.FetchPositions(models.OpenPositionsFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open positions: %w", err)
	}

	subjects, err := tx.FetchSubjects()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}

	var events []*models.WorldEvent
	prices := make(map[string]float64, len(subjects))
	subjectsByID := make(map[uuid.UUID]*models.Subject, len(subjects))

	for _, subject := range subjects {
		params := models.PriceParamsForStatus(subject.Status)

		if subject.Status == models.SubjectStatusCritical {
			shortQty := models.OpenShortQuantity(openPositions, subject.Ticker)
			draw := s.random(tickCount + subject.Price)

			if models.IsDiscovered(subject.Status, shortQty, draw, s.params.Discovery) {
				if err := s.discover(tx, subject, simTime); err != nil {
					return nil, err
				}

				params = models.ReboundPriceParams
				events = append(events, models.NewSubjectDiscoveredEvent(subject, shortQty, simTime, now))

				logger.WithFields(log.Fields{
					"ticker":     subject.Ticker,
					"short_qty":  shortQty,
					"tick_count": clock.TickCount,
				}).Info("subject discovered short interest")
			}
		}

		prev := subject.Price
		subject.Price = models.PriceStep(prev, params, dt, s.random(tickCount*7+prev), s.params.PriceFloor)

		if err := tx.SaveSubject(subject); err != nil {
			return nil, fmt.Errorf("failed to save subject %s: %w", subject.Ticker, err)
		}

		volume := models.TradedVolume(prev, subject.Price, s.random(tickCount))
		if err := tx.InsertPricePoint(models.NewPricePoint(subject.Ticker, subject.Price, volume, simTime)); err != nil {
			return nil, fmt.Errorf("failed to insert price point for %s: %w", subject.Ticker, err)
		}

		prices[subject.Ticker] = subject.Price
		subjectsByID[subject.ID] = subject
	}

	active := models.PatientStatusActive
	patients, err := tx.FetchPatients(&active)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active patients: %w", err)
	}

	activeCount := 0
	for _, patient := range patients {
		last, found := patient.LatestVitals()
		if !found {
			activeCount++
			continue
		}

		outcome := models.HealthStep(models.HealthInput{
			Last:       last,
			Severity:   patient.Severity,
			Trajectory: patient.Trajectory,
			SimTime:    simTime,
		}, s.random(tickCount*13+patient.Severity))

		patient.ApplyHealthOutcome(outcome, s.params.VitalsHistory)
		if err := tx.SavePatient(patient); err != nil {
			return nil, fmt.Errorf("failed to save patient %s: %w", patient.ID, err)
		}

		if !outcome.Died {
			activeCount++
			continue
		}

		subject, found := subjectsByID[patient.SubjectID]
		if !found {
			return nil, fmt.Errorf("patient %s: subject %s: %w", patient.ID, patient.SubjectID, models.ErrNotFound)
		}

		subject.Status = models.SubjectStatusDeceased
		if err := tx.SaveSubject(subject); err != nil {
			return nil, fmt.Errorf("failed to save subject %s: %w", subject.Ticker, err)
		}

		events = append(events, models.NewPatientDeceasedEvent(subject, simTime, now))
		logger.WithField("ticker", subject.Ticker).Info("patient deceased")
	}

	unrealized := 0.0
	for _, p := range models.MarkToMarket(openPositions, prices) {
		if err := tx.SavePosition(p); err != nil {
			return nil, fmt.Errorf("failed to save position %s: %w", p.ID, err)
		}
	}

	for _, p := range openPositions {
		unrealized += p.PnL
	}

	fund, err := tx.FetchFund()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fund: %w", err)
	}

	fund.LastUpdated = now
	if err := tx.SaveFund(fund); err != nil {
		return nil, fmt.Errorf("failed to save fund: %w", err)
	}

	clock.Advance(now, simElapsed)
	if err := tx.SaveClock(clock); err != nil {
		return nil, fmt.Errorf("failed to save clock: %w", err)
	}

	return &models.TickResult{
		Status:         models.TickStatusTicked,
		TickCount:      clock.TickCount,
		SimTime:        clock.SimTime,
		ElapsedDays:    dt,
		Subjects:       len(subjects),
		ActivePatients: activeCount,
		OpenPositions:  len(openPositions),
		UnrealizedPnL:  unrealized,
		Events:         events,
	}, nil
}

// discover moves a critical subject to cured and discharges their active
// patient record, if any.
func (s *WorldService) discover(tx models.IWorldStore, subject *models.Subject, simTime time.Time) error {
	subject.Status = models.SubjectStatusCured

	patient, err := tx.FetchActivePatient(subject.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to fetch active patient for %s: %w", subject.Ticker, err)
	}

	patient.Discharge(simTime)
	if err := tx.SavePatient(patient); err != nil {
		return fmt.Errorf("failed to discharge patient %s: %w", patient.ID, err)
	}

	return nil
}
