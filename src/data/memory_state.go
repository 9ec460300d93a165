package data

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// worldState is the unlocked record set behind MemoryStore. Every record
// handed in or out is a copy, so callers never share memory with the store.
type worldState struct {
	clock     *models.WorldClock
	fund      *models.Fund
	subjects  map[uuid.UUID]*models.Subject
	patients  map[uuid.UUID]*models.Patient
	positions map[uuid.UUID]*models.Position
	trades    []*models.Trade
	prices    map[string][]*models.PricePoint
	memories  []*models.AgentMemory
}

func newWorldState() *worldState {
	return &worldState{
		subjects:  make(map[uuid.UUID]*models.Subject),
		patients:  make(map[uuid.UUID]*models.Patient),
		positions: make(map[uuid.UUID]*models.Position),
		prices:    make(map[string][]*models.PricePoint),
	}
}

// clone copies the mutable records. Trades, price points and memories are
// append-only and immutable once inserted, so their slices are shared: a
// rolled back transaction only ever wrote past the committed length.
func (s *worldState) clone() *worldState {
	c := &worldState{
		subjects:  make(map[uuid.UUID]*models.Subject, len(s.subjects)),
		patients:  make(map[uuid.UUID]*models.Patient, len(s.patients)),
		positions: make(map[uuid.UUID]*models.Position, len(s.positions)),
		trades:    s.trades,
		prices:    make(map[string][]*models.PricePoint, len(s.prices)),
		memories:  s.memories,
	}

	if s.clock != nil {
		c.clock = s.clock.Clone()
	}

	if s.fund != nil {
		c.fund = s.fund.Clone()
	}

	for id, subject := range s.subjects {
		c.subjects[id] = subject.Clone()
	}

	for id, patient := range s.patients {
		c.patients[id] = patient.Clone()
	}

	for id, position := range s.positions {
		c.positions[id] = position.Clone()
	}

	for ticker, points := range s.prices {
		c.prices[ticker] = points
	}

	return c
}

func notFound(kind string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, key, models.ErrNotFound)
}

func (s *worldState) FetchClock() (*models.WorldClock, error) {
	if s.clock == nil {
		return nil, notFound("clock", "singleton")
	}

	return s.clock.Clone(), nil
}

func (s *worldState) SaveClock(clock *models.WorldClock) error {
	s.clock = clock.Clone()
	return nil
}

func (s *worldState) FetchFund() (*models.Fund, error) {
	if s.fund == nil {
		return nil, notFound("fund", "singleton")
	}

	return s.fund.Clone(), nil
}

func (s *worldState) SaveFund(fund *models.Fund) error {
	s.fund = fund.Clone()
	return nil
}

func (s *worldState) FetchSubjects() ([]*models.Subject, error) {
	subjects := make([]*models.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		subjects = append(subjects, subject.Clone())
	}

	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].CreatedAt.Equal(subjects[j].CreatedAt) {
			return subjects[i].Ticker < subjects[j].Ticker
		}
		return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
	})

	return subjects, nil
}

func (s *worldState) FetchSubject(id uuid.UUID) (*models.Subject, error) {
	subject, found := s.subjects[id]
	if !found {
		return nil, notFound("subject", id)
	}

	return subject.Clone(), nil
}

func (s *worldState) FetchSubjectByTicker(ticker string) (*models.Subject, error) {
	for _, subject := range s.subjects {
		if subject.Ticker == ticker {
			return subject.Clone(), nil
		}
	}

	return nil, fmt.Errorf("ticker %s: %w", ticker, models.ErrUnknownTicker)
}

func (s *worldState) SaveSubject(subject *models.Subject) error {
	for id, existing := range s.subjects {
		if existing.Ticker == subject.Ticker && id != subject.ID {
			return fmt.Errorf("saveSubject: duplicate ticker %s", subject.Ticker)
		}
	}

	s.subjects[subject.ID] = subject.Clone()
	return nil
}

func (s *worldState) FetchPatients(status *models.PatientStatus) ([]*models.Patient, error) {
	var patients []*models.Patient
	for _, patient := range s.patients {
		if status != nil && patient.Status != *status {
			continue
		}

		patients = append(patients, patient.Clone())
	}

	sort.Slice(patients, func(i, j int) bool {
		return patients[i].AdmittedAt.Before(patients[j].AdmittedAt)
	})

	return patients, nil
}

func (s *worldState) FetchPatient(id uuid.UUID) (*models.Patient, error) {
	patient, found := s.patients[id]
	if !found {
		return nil, notFound("patient", id)
	}

	return patient.Clone(), nil
}

func (s *worldState) FetchActivePatient(subjectID uuid.UUID) (*models.Patient, error) {
	for _, patient := range s.patients {
		if patient.SubjectID == subjectID && patient.Status == models.PatientStatusActive {
			return patient.Clone(), nil
		}
	}

	return nil, notFound("active patient for subject", subjectID)
}

func (s *worldState) SavePatient(patient *models.Patient) error {
	s.patients[patient.ID] = patient.Clone()
	return nil
}

func (s *worldState) FetchPositions(filter models.PositionFilter) ([]*models.Position, error) {
	var positions []*models.Position
	for _, position := range s.positions {
		if filter.Matches(position) {
			positions = append(positions, position.Clone())
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].Sequence < positions[j].Sequence
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})

	return positions, nil
}

func (s *worldState) CountPositions() (int64, error) {
	return int64(len(s.positions)), nil
}

func (s *worldState) SavePosition(position *models.Position) error {
	s.positions[position.ID] = position.Clone()
	return nil
}

func (s *worldState) FetchTrades(limit int) ([]*models.Trade, error) {
	var trades []*models.Trade
	for i := len(s.trades) - 1; i >= 0; i-- {
		if limit > 0 && len(trades) >= limit {
			break
		}

		trade := *s.trades[i]
		trades = append(trades, &trade)
	}

	return trades, nil
}

func (s *worldState) InsertTrade(trade *models.Trade) error {
	trade.Sequence = int64(len(s.trades) + 1)
	t := *trade
	s.trades = append(s.trades, &t)
	return nil
}

func (s *worldState) FetchPriceHistory(ticker string, limit int) ([]*models.PricePoint, error) {
	points := s.prices[ticker]
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}

	history := make([]*models.PricePoint, 0, len(points))
	for _, p := range points {
		point := *p
		history = append(history, &point)
	}

	return history, nil
}

func (s *worldState) InsertPricePoint(point *models.PricePoint) error {
	p := *point
	s.prices[point.Ticker] = append(s.prices[point.Ticker], &p)
	return nil
}

func (s *worldState) FetchMemories(memoryType *models.MemoryType, limit int) ([]*models.AgentMemory, error) {
	var memories []*models.AgentMemory
	for i := len(s.memories) - 1; i >= 0; i-- {
		if limit > 0 && len(memories) >= limit {
			break
		}

		if memoryType != nil && s.memories[i].Type != *memoryType {
			continue
		}

		memory := *s.memories[i]
		memories = append(memories, &memory)
	}

	return memories, nil
}

func (s *worldState) InsertMemory(memory *models.AgentMemory) error {
	m := *memory
	s.memories = append(s.memories, &m)
	return nil
}
