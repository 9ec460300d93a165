package data

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ward-market/src/dbutils"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

func testStores(t *testing.T) map[string]func(t *testing.T) models.IWorldDatabase {
	stores := map[string]func(t *testing.T) models.IWorldDatabase{
		"memory": func(t *testing.T) models.IWorldDatabase {
			return NewMemoryStore()
		},
	}

	url := os.Getenv("WARD_TEST_POSTGRES_URL")
	if url == "" {
		return stores
	}

	stores["postgres"] = func(t *testing.T) models.IWorldDatabase {
		db, err := dbutils.InitPostgresWithUrl(url)
		require.NoError(t, err)

		for _, table := range []string{"world_clocks", "funds", "subjects", "patients", "positions", "trades", "price_points", "agent_memories"} {
			require.NoError(t, db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)).Error)
		}

		return NewPostgresStore(db)
	}

	return stores
}

func TestWorldStore(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("singletons are missing until saved", func(t *testing.T) {
				store := newStore(t)

				_, err := store.FetchClock()
				require.ErrorIs(t, err, models.ErrNotFound)

				_, err = store.FetchFund()
				require.ErrorIs(t, err, models.ErrNotFound)

				require.NoError(t, store.SaveFund(models.NewFund(models.DefaultInitialBalance, now)))
				fund, err := store.FetchFund()
				require.NoError(t, err)
				assert.Equal(t, models.DefaultInitialBalance, fund.Balance)
			})

			t.Run("subjects by ticker", func(t *testing.T) {
				store := newStore(t)
				subject := &models.Subject{ID: uuid.New(), Name: "Reginald Thornberry III", Ticker: "THRN", Price: 142.5, Status: models.SubjectStatusAlive, CreatedAt: now}
				require.NoError(t, store.SaveSubject(subject))

				found, err := store.FetchSubjectByTicker("THRN")
				require.NoError(t, err)
				assert.Equal(t, subject.ID, found.ID)

				_, err = store.FetchSubjectByTicker("NOPE")
				require.ErrorIs(t, err, models.ErrUnknownTicker)

				_, err = store.FetchSubject(uuid.New())
				require.ErrorIs(t, err, models.ErrNotFound)
			})

			t.Run("positions come back oldest first", func(t *testing.T) {
				store := newStore(t)
				second := models.NewPosition("PNDG", models.PositionSideShort, 100, 56.4, now, "", 2)
				first := models.NewPosition("PNDG", models.PositionSideShort, 100, 56.4, now, "", 1)
				older := models.NewPosition("PNDG", models.PositionSideShort, 100, 56.4, now.Add(-time.Hour), "", 3)

				for _, p := range []*models.Position{second, first, older} {
					require.NoError(t, store.SavePosition(p))
				}

				positions, err := store.FetchPositions(models.PositionFilter{Ticker: "PNDG", Side: models.PositionSideShort})
				require.NoError(t, err)
				require.Len(t, positions, 3)
				assert.Equal(t, older.ID, positions[0].ID)
				assert.Equal(t, first.ID, positions[1].ID)
				assert.Equal(t, second.ID, positions[2].ID)

				count, err := store.CountPositions()
				require.NoError(t, err)
				assert.Equal(t, int64(3), count)
			})

			t.Run("price history keeps the latest points oldest first", func(t *testing.T) {
				store := newStore(t)
				for i := 0; i < 5; i++ {
					require.NoError(t, store.InsertPricePoint(models.NewPricePoint("AETH", 100+float64(i), 1000, now.Add(time.Duration(i)*time.Minute))))
				}

				history, err := store.FetchPriceHistory("AETH", 3)
				require.NoError(t, err)
				require.Len(t, history, 3)
				assert.Equal(t, 102.0, history[0].Price)
				assert.Equal(t, 104.0, history[2].Price)
			})

			t.Run("memories filter by type newest first", func(t *testing.T) {
				store := newStore(t)
				note := models.MemoryTypeNote
				for i := 0; i < 3; i++ {
					require.NoError(t, store.InsertMemory(models.NewAgentMemory(models.MemoryTypeNote, fmt.Sprintf("note %d", i), "", now, now.Add(time.Duration(i)*time.Second))))
				}
				require.NoError(t, store.InsertMemory(models.NewAgentMemory(models.MemoryTypeGrudge, "grudge", "", now, now.Add(time.Minute))))

				memories, err := store.FetchMemories(&note, 2)
				require.NoError(t, err)
				require.Len(t, memories, 2)
				assert.Equal(t, "note 2", memories[0].Title)
				assert.Equal(t, "note 1", memories[1].Title)

				all, err := store.FetchMemories(nil, 0)
				require.NoError(t, err)
				assert.Len(t, all, 4)
				assert.Equal(t, "grudge", all[0].Title)
			})

			t.Run("failed transaction rolls back", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.SaveFund(models.NewFund(1000, now)))

				err := store.Transaction(func(tx models.IWorldStore) error {
					fund, err := tx.FetchFund()
					require.NoError(t, err)

					fund.AllocatedToPositions = 500
					require.NoError(t, tx.SaveFund(fund))
					require.NoError(t, tx.InsertTrade(models.NewTrade(uuid.New(), "THRN", models.TradeActionBuy, 1, 500, now, now)))

					inside, err := tx.FetchFund()
					require.NoError(t, err)
					assert.Equal(t, 500.0, inside.AllocatedToPositions)

					return fmt.Errorf("boom")
				})
				require.EqualError(t, err, "boom")

				fund, err := store.FetchFund()
				require.NoError(t, err)
				assert.Equal(t, 0.0, fund.AllocatedToPositions)

				trades, err := store.FetchTrades(0)
				require.NoError(t, err)
				assert.Empty(t, trades)
			})

			t.Run("trades sharing a timestamp come back newest insert first", func(t *testing.T) {
				store := newStore(t)
				positionID := uuid.New()
				require.NoError(t, store.InsertTrade(models.NewTrade(positionID, "CDFI", models.TradeActionShort, 1000, 100, now, now)))
				require.NoError(t, store.InsertTrade(models.NewTrade(positionID, "CDFI", models.TradeActionCover, 1000, 80, now, now)))

				trades, err := store.FetchTrades(0)
				require.NoError(t, err)
				require.Len(t, trades, 2)
				assert.Equal(t, models.TradeActionCover, trades[0].Action)
				assert.Equal(t, models.TradeActionShort, trades[1].Action)
			})

			t.Run("committed transaction is visible", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.SaveFund(models.NewFund(1000, now)))

				require.NoError(t, store.Transaction(func(tx models.IWorldStore) error {
					fund, err := tx.FetchFund()
					if err != nil {
						return err
					}

					fund.Balance = 1200
					return tx.SaveFund(fund)
				}))

				fund, err := store.FetchFund()
				require.NoError(t, err)
				assert.Equal(t, 1200.0, fund.Balance)
			})
		})
	}
}

func TestPostgresStoreAcrossHandles(t *testing.T) {
	url := os.Getenv("WARD_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("WARD_TEST_POSTGRES_URL not set")
	}

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	var handles []*PostgresStore
	for i := 0; i < 2; i++ {
		db, err := dbutils.InitPostgresWithUrl(url)
		require.NoError(t, err)
		handles = append(handles, NewPostgresStore(db))
	}

	require.NoError(t, handles[0].db.Exec("TRUNCATE TABLE funds").Error)
	require.NoError(t, handles[0].SaveFund(models.NewFund(models.DefaultInitialBalance, now)))

	// Each transaction reads the fund, waits, then allocates. Without the world
	// lock both would pass the funds check against the same balance.
	var wg sync.WaitGroup
	errs := make([]error, len(handles))
	for i, store := range handles {
		wg.Add(1)
		go func(i int, store *PostgresStore) {
			defer wg.Done()
			errs[i] = store.Transaction(func(tx models.IWorldStore) error {
				fund, err := tx.FetchFund()
				if err != nil {
					return err
				}

				time.Sleep(200 * time.Millisecond)

				if err := fund.Allocate(2_000_000); err != nil {
					return err
				}

				return tx.SaveFund(fund)
			})
		}(i, store)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	}
	assert.Equal(t, 1, succeeded)

	fund, err := handles[1].FetchFund()
	require.NoError(t, err)
	assert.Equal(t, 2_000_000.0, fund.AllocatedToPositions)
}

func TestMemoryStoreIsolation(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()

	t.Run("fetched records are copies", func(t *testing.T) {
		p := models.NewPatient(uuid.New(), "chest pain", 0.7, models.Vitals{HeartRate: 100}, now)
		require.NoError(t, store.SavePatient(p))

		p.Severity = 0.1
		fetched, err := store.FetchPatient(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.7, fetched.Severity)

		fetched.Vitals[0].HeartRate = 1
		again, err := store.FetchPatient(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, again.Vitals[0].HeartRate)
	})

	t.Run("rolled back appends are not visible", func(t *testing.T) {
		require.NoError(t, store.InsertTrade(models.NewTrade(uuid.New(), "THRN", models.TradeActionBuy, 1, 1, now, now)))

		_ = store.Transaction(func(tx models.IWorldStore) error {
			require.NoError(t, tx.InsertTrade(models.NewTrade(uuid.New(), "AETH", models.TradeActionBuy, 1, 1, now, now)))
			return fmt.Errorf("abort")
		})

		require.NoError(t, store.InsertTrade(models.NewTrade(uuid.New(), "CDFI", models.TradeActionBuy, 1, 1, now, now)))

		trades, err := store.FetchTrades(0)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "CDFI", trades[0].Ticker)
		assert.Equal(t, "THRN", trades[1].Ticker)
	})

	t.Run("transactions serialize", func(t *testing.T) {
		require.NoError(t, store.SaveFund(models.NewFund(0, now)))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Transaction(func(tx models.IWorldStore) error {
					fund, err := tx.FetchFund()
					if err != nil {
						return err
					}

					fund.Balance++
					return tx.SaveFund(fund)
				})
			}()
		}
		wg.Wait()

		fund, err := store.FetchFund()
		require.NoError(t, err)
		assert.Equal(t, 50.0, fund.Balance)
	})
}
