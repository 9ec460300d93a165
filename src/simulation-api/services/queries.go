package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

func notSeeded(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %v", models.ErrWorldNotSeeded, err)
	}

	return err
}

func (s *WorldService) FetchSubjects(ctx context.Context) ([]*models.Subject, error) {
	subjects, err := s.db.FetchSubjects()
	if err != nil {
		return nil, fmt.Errorf("fetchSubjects: %w", err)
	}

	return subjects, nil
}

func (s *WorldService) FetchLatestPrices(ctx context.Context) ([]*models.LatestPrice, error) {
	subjects, err := s.db.FetchSubjects()
	if err != nil {
		return nil, fmt.Errorf("fetchLatestPrices: %w", err)
	}

	var prices []*models.LatestPrice
	if err := copier.Copy(&prices, &subjects); err != nil {
		return nil, fmt.Errorf("fetchLatestPrices: failed to copy subjects: %w", err)
	}

	return prices, nil
}

// FetchPriceHistory returns the latest limit points for ticker, oldest first.
func (s *WorldService) FetchPriceHistory(ctx context.Context, ticker string, limit int) ([]*models.PricePoint, error) {
	ticker = strings.ToUpper(ticker)
	if _, err := s.db.FetchSubjectByTicker(ticker); err != nil {
		return nil, fmt.Errorf("fetchPriceHistory: %w", err)
	}

	if limit <= 0 {
		limit = DefaultPriceLimit
	}

	history, err := s.db.FetchPriceHistory(ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("fetchPriceHistory: %w", err)
	}

	return history, nil
}

func (s *WorldService) FetchPatients(ctx context.Context, status *models.PatientStatus) ([]*models.PatientWithSubject, error) {
	if status != nil {
		if err := status.Validate(); err != nil {
			return nil, fmt.Errorf("fetchPatients: %w", err)
		}
	}

	patients, err := s.db.FetchPatients(status)
	if err != nil {
		return nil, fmt.Errorf("fetchPatients: %w", err)
	}

	subjects, err := s.db.FetchSubjects()
	if err != nil {
		return nil, fmt.Errorf("fetchPatients: %w", err)
	}

	return withSubjects(patients, subjects), nil
}

func withSubjects(patients []*models.Patient, subjects []*models.Subject) []*models.PatientWithSubject {
	byID := make(map[uuid.UUID]*models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}

	out := make([]*models.PatientWithSubject, 0, len(patients))
	for _, p := range patients {
		out = append(out, &models.PatientWithSubject{Patient: p, Subject: byID[p.SubjectID]})
	}

	return out
}

func (s *WorldService) FetchPositions(ctx context.Context, filter models.PositionFilter) ([]*models.Position, error) {
	if filter.Status != nil {
		if err := filter.Status.Validate(); err != nil {
			return nil, fmt.Errorf("fetchPositions: %w", err)
		}
	}

	positions, err := s.db.FetchPositions(filter)
	if err != nil {
		return nil, fmt.Errorf("fetchPositions: %w", err)
	}

	return positions, nil
}

func (s *WorldService) FetchTrades(ctx context.Context, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}

	trades, err := s.db.FetchTrades(limit)
	if err != nil {
		return nil, fmt.Errorf("fetchTrades: %w", err)
	}

	return trades, nil
}

// FetchFundSummary reads the fund and its open positions from one snapshot.
func (s *WorldService) FetchFundSummary(ctx context.Context) (*models.FundSummary, error) {
	var summary *models.FundSummary

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		fund, err := tx.FetchFund()
		if err != nil {
			return notSeeded(err)
		}

		open, err := tx.FetchPositions(models.OpenPositionsFilter())
		if err != nil {
			return err
		}

		summary = models.NewFundSummary(fund, open)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetchFundSummary: %w", err)
	}

	return summary, nil
}

func (s *WorldService) FetchPortfolio(ctx context.Context) (*models.PortfolioSummary, error) {
	var portfolio *models.PortfolioSummary

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		open, err := tx.FetchPositions(models.OpenPositionsFilter())
		if err != nil {
			return err
		}

		closedStatus := models.PositionStatusClosed
		closed, err := tx.FetchPositions(models.PositionFilter{Status: &closedStatus})
		if err != nil {
			return err
		}

		portfolio = models.NewPortfolioSummary(open, closed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetchPortfolio: %w", err)
	}

	return portfolio, nil
}

// FetchWorldState reads a committed snapshot of the whole world, as seen by
// the trading agent before it acts.
func (s *WorldService) FetchWorldState(ctx context.Context) (*models.WorldState, error) {
	var state *models.WorldState

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		clock, err := tx.FetchClock()
		if err != nil {
			return notSeeded(err)
		}

		fund, err := tx.FetchFund()
		if err != nil {
			return notSeeded(err)
		}

		subjects, err := tx.FetchSubjects()
		if err != nil {
			return err
		}

		active := models.PatientStatusActive
		patients, err := tx.FetchPatients(&active)
		if err != nil {
			return err
		}

		open, err := tx.FetchPositions(models.OpenPositionsFilter())
		if err != nil {
			return err
		}

		memories, err := tx.FetchMemories(nil, WorldStateMemories)
		if err != nil {
			return err
		}

		state = &models.WorldState{
			Clock:          clock,
			Subjects:       subjects,
			ActivePatients: withSubjects(patients, subjects),
			OpenPositions:  open,
			Fund:           models.NewFundSummary(fund, open),
			RecentMemories: memories,
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetchWorldState: %w", err)
	}

	return state, nil
}
