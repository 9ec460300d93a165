package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ward-market/src/data"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.WorldEvent
}

func (p *recordingPublisher) Publish(ev *models.WorldEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Types() []models.WorldEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	var types []models.WorldEventType
	for _, ev := range p.events {
		types = append(types, ev.Type)
	}
	return types
}

func constantRandom(r float64) models.RandomFunc {
	return func(float64) float64 {
		return r
	}
}

func testRoster() *models.Roster {
	return &models.Roster{
		Subjects: []models.RosterEntry{
			{Name: "Reginald Thornberry III", Company: "Thornberry Pharmaceuticals", Ticker: "THRN", Age: 67, Price: 142.5, Status: models.SubjectStatusAlive},
			{Name: "Douglas 'Duke' Crampton", Company: "Crampton Defense Industries", Ticker: "CDFI", Age: 74, Price: 89.3, Status: models.SubjectStatusCritical, Complaint: "Acute exacerbation of COPD"},
			{Name: "Test Subject", Company: "Round Numbers Inc", Ticker: "TEST", Age: 50, Price: 100, Status: models.SubjectStatusAlive},
		},
	}
}

type testWorld struct {
	service   *WorldService
	store     *data.MemoryStore
	clock     *fakeClock
	publisher *recordingPublisher
}

func newTestWorld(t *testing.T, params models.SimulationParams, opts ...Option) *testWorld {
	t.Helper()

	w := &testWorld{
		store:     data.NewMemoryStore(),
		clock:     &fakeClock{now: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}

	opts = append([]Option{WithClock(w.clock.Now), WithPublisher(w.publisher)}, opts...)
	w.service = NewWorldService(w.store, params, opts...)

	result, err := w.service.Seed(context.Background(), testRoster())
	require.NoError(t, err)
	require.Equal(t, models.SeedStatusSeeded, result.Status)

	return w
}

func (w *testWorld) subject(t *testing.T, ticker string) *models.Subject {
	t.Helper()

	subject, err := w.store.FetchSubjectByTicker(ticker)
	require.NoError(t, err)
	return subject
}

func (w *testWorld) setPrice(t *testing.T, ticker string, price float64) {
	t.Helper()

	subject := w.subject(t, ticker)
	subject.Price = price
	require.NoError(t, w.store.SaveSubject(subject))
}

func (w *testWorld) fund(t *testing.T) *models.Fund {
	t.Helper()

	fund, err := w.store.FetchFund()
	require.NoError(t, err)
	return fund
}

func (w *testWorld) activePatient(t *testing.T, ticker string) *models.Patient {
	t.Helper()

	patient, err := w.store.FetchActivePatient(w.subject(t, ticker).ID)
	require.NoError(t, err)
	return patient
}
