package services

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

const DefaultComplaint = "Acute chest pain, troponin elevated, ECG changes"

// Seed creates the world from roster: subjects with an opening price point,
// an active patient for every subject that starts critical, the fund and the
// clock. Seeding a world that already has subjects changes nothing.
func (s *WorldService) Seed(ctx context.Context, roster *models.Roster) (*models.SeedResult, error) {
	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("seed: invalid roster: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result *models.SeedResult

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		existing, err := tx.FetchSubjects()
		if err != nil {
			return fmt.Errorf("failed to fetch subjects: %w", err)
		}

		if len(existing) > 0 {
			result = &models.SeedResult{Status: models.SeedStatusAlreadySeeded}
			return nil
		}

		result = &models.SeedResult{Status: models.SeedStatusSeeded}

		for i, entry := range roster.Subjects {
			subject := entry.NewSubject(now)
			if err := tx.SaveSubject(subject); err != nil {
				return fmt.Errorf("failed to save subject %s: %w", subject.Ticker, err)
			}

			seed := float64(i) + subject.Price
			volume := 500_000 + int64(math.Floor(s.random(seed)*5_000_000))
			if err := tx.InsertPricePoint(models.NewPricePoint(subject.Ticker, subject.Price, volume, now)); err != nil {
				return fmt.Errorf("failed to insert price point for %s: %w", subject.Ticker, err)
			}

			result.Subjects++

			if subject.Status != models.SubjectStatusCritical {
				continue
			}

			complaint := entry.Complaint
			if complaint == "" {
				complaint = DefaultComplaint
			}

			severity := 0.7 + s.random(seed*3)*0.2
			vitals := models.AdmissionVitals(now, seed, s.random)
			if err := tx.SavePatient(models.NewPatient(subject.ID, complaint, severity, vitals, now)); err != nil {
				return fmt.Errorf("failed to save patient for %s: %w", subject.Ticker, err)
			}

			result.Patients++
		}

		if err := tx.SaveFund(models.NewFund(s.params.InitialBalance, now)); err != nil {
			return fmt.Errorf("failed to save fund: %w", err)
		}

		if err := tx.SaveClock(models.NewWorldClock(now, s.params.Speed, now)); err != nil {
			return fmt.Errorf("failed to save clock: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"status":   result.Status,
		"subjects": result.Subjects,
		"patients": result.Patients,
	}).Info("world seeded")

	return result, nil
}
