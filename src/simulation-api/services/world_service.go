package services

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

const (
	DefaultTradeLimit   = 50
	DefaultMemoryLimit  = 50
	DefaultPriceLimit   = 100
	WorldStateMemories  = 5
	instrumentationName = "github.com/jiaming2012/ward-market/src/simulation-api/services"
)

// EventPublisher receives world events after the operation that produced
// them has committed.
type EventPublisher interface {
	Publish(event *models.WorldEvent)
}

// WorldService owns every mutation of the simulated world. Mutations are
// serialized on mu and each one runs inside a single storage transaction.
type WorldService struct {
	mu        sync.Mutex
	db        models.IWorldDatabase
	params    models.SimulationParams
	publisher EventPublisher
	now       func() time.Time
	random    models.RandomFunc
	tracer    trace.Tracer

	ticks  metric.Int64Counter
	trades metric.Int64Counter
}

type Option func(*WorldService)

// WithClock replaces the wall clock used for ticks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *WorldService) {
		s.now = now
	}
}

// WithRandom replaces the seeded random function.
func WithRandom(random models.RandomFunc) Option {
	return func(s *WorldService) {
		s.random = random
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *WorldService) {
		s.publisher = publisher
	}
}

func NewWorldService(db models.IWorldDatabase, params models.SimulationParams, opts ...Option) *WorldService {
	s := &WorldService{
		db:     db,
		params: params.WithDefaults(),
		now:    time.Now,
		random: models.SeededRandom,
		tracer: otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter(instrumentationName)

	var err error
	if s.ticks, err = meter.Int64Counter("world.ticks", metric.WithDescription("Completed world ticks")); err != nil {
		log.Warnf("NewWorldService: failed to create tick counter: %v", err)
	}

	if s.trades, err = meter.Int64Counter("world.trades", metric.WithDescription("Executed trades")); err != nil {
		log.Warnf("NewWorldService: failed to create trade counter: %v", err)
	}

	return s
}

func (s *WorldService) Params() models.SimulationParams {
	return s.params
}

func (s *WorldService) publish(events []*models.WorldEvent) {
	if s.publisher == nil {
		return
	}

	for _, ev := range events {
		s.publisher.Publish(ev)
	}
}
