package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// PlaceTrade routes a trade request: buy and short open a position, sell and
// cover close the oldest open position of the matching side.
func (s *WorldService) PlaceTrade(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("placeTrade: %w", err)
	}

	if req.Action.IsOpening() {
		return s.OpenPosition(ctx, req.Ticker, req.Action.Side(), req.Quantity, req.Note)
	}

	return s.ClosePosition(ctx, req.Ticker, req.Action.Side())
}

// OpenPosition allocates price*quantity from the fund at the subject's
// current price. Nothing is written when the fund cannot cover the cost.
func (s *WorldService) OpenPosition(ctx context.Context, ticker string, side models.PositionSide, quantity int, note string) (*models.TradeResult, error) {
	ctx, span := s.tracer.Start(ctx, "WorldService.OpenPosition")
	defer span.End()

	span.SetAttributes(attribute.String("ticker", ticker), attribute.String("side", string(side)), attribute.Int("quantity", quantity))

	if err := side.Validate(); err != nil {
		return nil, fmt.Errorf("openPosition: %w", err)
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("openPosition: %w", models.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result *models.TradeResult
	var event *models.WorldEvent

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		subject, err := tx.FetchSubjectByTicker(ticker)
		if err != nil {
			return err
		}

		fund, err := tx.FetchFund()
		if err != nil {
			return fmt.Errorf("failed to fetch fund: %w", err)
		}

		clock, err := tx.FetchClock()
		if err != nil {
			return fmt.Errorf("failed to fetch clock: %w", err)
		}

		count, err := tx.CountPositions()
		if err != nil {
			return fmt.Errorf("failed to count positions: %w", err)
		}

		position := models.NewPosition(subject.Ticker, side, quantity, subject.Price, clock.SimTime, note, count+1)
		if err := fund.Allocate(position.Cost()); err != nil {
			return err
		}

		fund.LastUpdated = now
		action := models.OpeningAction(side)
		trade := models.NewTrade(position.ID, subject.Ticker, action, quantity, subject.Price, clock.SimTime, now)

		if err := tx.SavePosition(position); err != nil {
			return fmt.Errorf("failed to save position: %w", err)
		}

		if err := tx.SaveFund(fund); err != nil {
			return fmt.Errorf("failed to save fund: %w", err)
		}

		if err := tx.InsertTrade(trade); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}

		result = &models.TradeResult{
			Status:   models.TradeResultOpened,
			Position: position,
			Trade:    trade,
			Cost:     position.Cost(),
		}
		event = models.NewTradeExecutedEvent(position, action, now)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openPosition: %w", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"ticker":   result.Position.Ticker,
		"side":     side,
		"quantity": quantity,
		"price":    result.Position.EntryPrice,
	}).Info("position opened")

	if s.trades != nil {
		s.trades.Add(ctx, 1)
	}

	s.publish([]*models.WorldEvent{event})
	return result, nil
}

// ClosePosition settles the oldest open position on (ticker, side) at the
// subject's current price.
func (s *WorldService) ClosePosition(ctx context.Context, ticker string, side models.PositionSide) (*models.TradeResult, error) {
	ctx, span := s.tracer.Start(ctx, "WorldService.ClosePosition")
	defer span.End()

	span.SetAttributes(attribute.String("ticker", ticker), attribute.String("side", string(side)))

	if err := side.Validate(); err != nil {
		return nil, fmt.Errorf("closePosition: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result *models.TradeResult
	var event *models.WorldEvent

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		subject, err := tx.FetchSubjectByTicker(ticker)
		if err != nil {
			return err
		}

		open := models.PositionStatusOpen
		positions, err := tx.FetchPositions(models.PositionFilter{Status: &open, Ticker: subject.Ticker, Side: side})
		if err != nil {
			return fmt.Errorf("failed to fetch positions: %w", err)
		}

		if len(positions) == 0 {
			return fmt.Errorf("%w: %s %s", models.ErrNoOpenPosition, side, subject.Ticker)
		}

		fund, err := tx.FetchFund()
		if err != nil {
			return fmt.Errorf("failed to fetch fund: %w", err)
		}

		clock, err := tx.FetchClock()
		if err != nil {
			return fmt.Errorf("failed to fetch clock: %w", err)
		}

		position := positions[0]
		pnl := position.Close(subject.Price, clock.SimTime)
		fund.Release(position.Cost(), pnl)
		fund.LastUpdated = now

		action := models.ClosingAction(side)
		trade := models.NewTrade(position.ID, subject.Ticker, action, position.Quantity, subject.Price, clock.SimTime, now)

		if err := tx.SavePosition(position); err != nil {
			return fmt.Errorf("failed to save position: %w", err)
		}

		if err := tx.SaveFund(fund); err != nil {
			return fmt.Errorf("failed to save fund: %w", err)
		}

		if err := tx.InsertTrade(trade); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}

		result = &models.TradeResult{
			Status:      models.TradeResultClosed,
			Position:    position,
			Trade:       trade,
			RealizedPnL: pnl,
		}
		event = models.NewPositionClosedEvent(position, action, pnl, clock.SimTime, now)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("closePosition: %w", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"ticker": result.Position.Ticker,
		"side":   side,
		"pnl":    result.RealizedPnL,
	}).Info("position closed")

	if s.trades != nil {
		s.trades.Add(ctx, 1)
	}

	s.publish([]*models.WorldEvent{event})
	return result, nil
}
