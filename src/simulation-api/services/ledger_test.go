package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ward-market/src/data"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

func TestPlaceTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("short then cover at a lower price", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		opened, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionShort, Quantity: 1000, Note: "looks pale"})
		require.NoError(t, err)
		assert.Equal(t, models.TradeResultOpened, opened.Status)
		assert.Equal(t, 100_000.0, opened.Cost)
		assert.Equal(t, "looks pale", opened.Position.Reasoning)

		fund := w.fund(t)
		assert.Equal(t, 100_000.0, fund.AllocatedToPositions)
		assert.Equal(t, 2_300_000.0, fund.Available())

		w.setPrice(t, "TEST", 80)

		closed, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionCover})
		require.NoError(t, err)
		assert.Equal(t, models.TradeResultClosed, closed.Status)
		assert.Equal(t, 20_000.0, closed.RealizedPnL)
		assert.Equal(t, models.PositionStatusClosed, closed.Position.Status)

		fund = w.fund(t)
		assert.Equal(t, 2_420_000.0, fund.Balance)
		assert.Equal(t, 0.0, fund.AllocatedToPositions)

		trades, err := w.service.FetchTrades(ctx, 0)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, models.TradeActionCover, trades[0].Action)
		assert.Equal(t, 80.0, trades[0].Price)
		assert.Equal(t, models.TradeActionShort, trades[1].Action)

		assert.Equal(t, []models.WorldEventType{models.WorldEventTradeExecuted, models.WorldEventPositionClosed}, w.publisher.Types())
	})

	t.Run("long pnl", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "test", Action: models.TradeActionBuy, Quantity: 10})
		require.NoError(t, err)

		w.setPrice(t, "TEST", 90)
		closed, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionSell})
		require.NoError(t, err)
		assert.Equal(t, -100.0, closed.RealizedPnL)
		assert.Equal(t, models.DefaultInitialBalance-100, w.fund(t).Balance)
	})

	t.Run("overdraft is rejected without side effects", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionBuy, Quantity: 24_000})
		require.NoError(t, err)

		before := w.fund(t)
		_, err = w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionShort, Quantity: 1})
		require.ErrorIs(t, err, models.ErrInsufficientFunds)

		assert.Equal(t, before, w.fund(t))

		positions, err := w.service.FetchPositions(ctx, models.PositionFilter{})
		require.NoError(t, err)
		assert.Len(t, positions, 1)

		trades, err := w.service.FetchTrades(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, trades, 1)
		assert.Len(t, w.publisher.Types(), 1)
	})

	t.Run("rejected requests", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		cases := []struct {
			name string
			req  models.TradeRequest
			err  error
		}{
			{"unknown ticker", models.TradeRequest{Ticker: "NOPE", Action: models.TradeActionBuy, Quantity: 1}, models.ErrUnknownTicker},
			{"cover with nothing open", models.TradeRequest{Ticker: "TEST", Action: models.TradeActionCover}, models.ErrNoOpenPosition},
			{"sell with only a short open", models.TradeRequest{Ticker: "CDFI", Action: models.TradeActionSell}, models.ErrNoOpenPosition},
			{"unknown action", models.TradeRequest{Ticker: "TEST", Action: "hodl", Quantity: 1}, models.ErrInvalidAction},
			{"zero quantity", models.TradeRequest{Ticker: "TEST", Action: models.TradeActionBuy}, models.ErrInvalidQuantity},
		}

		_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "CDFI", Action: models.TradeActionShort, Quantity: 5})
		require.NoError(t, err)
		before := w.fund(t)

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := tc.req
				_, err := w.service.PlaceTrade(ctx, &req)
				require.ErrorIs(t, err, tc.err)
				assert.Equal(t, before, w.fund(t))
			})
		}
	})

	t.Run("close picks the oldest open position", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		first, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionShort, Quantity: 100})
		require.NoError(t, err)

		second, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionShort, Quantity: 200})
		require.NoError(t, err)
		assert.Greater(t, second.Position.Sequence, first.Position.Sequence)

		closed, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionCover})
		require.NoError(t, err)
		assert.Equal(t, first.Position.ID, closed.Position.ID)

		assert.Equal(t, 20_000.0, w.fund(t).AllocatedToPositions)
	})

	t.Run("allocation matches open cost after any sequence", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{})

		steps := []models.TradeRequest{
			{Ticker: "TEST", Action: models.TradeActionBuy, Quantity: 10},
			{Ticker: "THRN", Action: models.TradeActionShort, Quantity: 40},
			{Ticker: "CDFI", Action: models.TradeActionShort, Quantity: 300},
			{Ticker: "TEST", Action: models.TradeActionBuy, Quantity: 7},
			{Ticker: "THRN", Action: models.TradeActionCover},
			{Ticker: "TEST", Action: models.TradeActionSell},
			{Ticker: "THRN", Action: models.TradeActionBuy, Quantity: 3},
		}

		for i, req := range steps {
			req := req
			_, err := w.service.PlaceTrade(ctx, &req)
			require.NoError(t, err, "step %d", i)

			w.setPrice(t, "TEST", 100+float64(i))
		}

		open, err := w.service.FetchPositions(ctx, models.OpenPositionsFilter())
		require.NoError(t, err)
		require.Len(t, open, 3)

		sum := 0.0
		for _, p := range open {
			sum += p.Cost()
		}
		assert.InDelta(t, sum, w.fund(t).AllocatedToPositions, 1e-6)
	})

	t.Run("concurrent opens never overdraw", func(t *testing.T) {
		w := newTestWorld(t, models.SimulationParams{InitialBalance: 1000})

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded, rejected := 0, 0

		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionBuy, Quantity: 1})

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, models.ErrInsufficientFunds):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		assert.Equal(t, 15, rejected)

		fund := w.fund(t)
		assert.Equal(t, 1000.0, fund.AllocatedToPositions)
		assert.Equal(t, 0.0, fund.Available())
	})
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	w := newTestWorld(t, models.SimulationParams{})

	_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "TEST", Action: models.TradeActionShort, Quantity: 100})
	require.NoError(t, err)
	_, err = w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "THRN", Action: models.TradeActionBuy, Quantity: 10})
	require.NoError(t, err)

	w.setPrice(t, "THRN", 152.5)
	_, err = w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "THRN", Action: models.TradeActionSell})
	require.NoError(t, err)

	portfolio, err := w.service.FetchPortfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, portfolio.OpenPositions)
	assert.Equal(t, 1, portfolio.ClosedPositions)
	assert.Equal(t, 100.0, portfolio.TotalRealizedPnL)

	summary, err := w.service.FetchFundSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultInitialBalance+100, summary.Balance)
	assert.Equal(t, 10_000.0, summary.AllocatedToPositions)
	assert.Equal(t, 1, summary.PositionCount)

	prices, err := w.service.FetchLatestPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 3)

	byTicker := map[string]*models.LatestPrice{}
	for _, p := range prices {
		byTicker[p.Ticker] = p
	}
	assert.Equal(t, 152.5, byTicker["THRN"].Price)
	assert.Equal(t, "Crampton Defense Industries", byTicker["CDFI"].Company)
	assert.Equal(t, models.SubjectStatusCritical, byTicker["CDFI"].Status)
}

// snapshotOnlyStore rejects reads made outside a transaction.
type snapshotOnlyStore struct {
	*data.MemoryStore
}

func (s *snapshotOnlyStore) FetchFund() (*models.Fund, error) {
	return nil, fmt.Errorf("fund read outside a transaction")
}

func (s *snapshotOnlyStore) FetchPositions(models.PositionFilter) ([]*models.Position, error) {
	return nil, fmt.Errorf("positions read outside a transaction")
}

func TestSummariesReadOneSnapshot(t *testing.T) {
	ctx := context.Background()
	w := newTestWorld(t, models.SimulationParams{})

	_, err := w.service.PlaceTrade(ctx, &models.TradeRequest{Ticker: "CDFI", Action: models.TradeActionShort, Quantity: 1000})
	require.NoError(t, err)

	s := NewWorldService(&snapshotOnlyStore{MemoryStore: w.store}, models.SimulationParams{}, WithClock(w.clock.Now))

	summary, err := s.FetchFundSummary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 89_300.0, summary.AllocatedToPositions, 1e-6)
	assert.Equal(t, 1, summary.PositionCount)

	portfolio, err := s.FetchPortfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, portfolio.OpenPositions)
}
