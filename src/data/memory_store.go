package data

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// MemoryStore keeps the world in process memory. Transactions run against a
// copy of the committed state which replaces it only when fn succeeds.
// Store methods must not be called from inside fn; use the tx handle.
type MemoryStore struct {
	mu    sync.RWMutex
	state *worldState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: newWorldState(),
	}
}

func (s *MemoryStore) Transaction(fn func(tx models.IWorldStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx
	return nil
}

func (s *MemoryStore) FetchClock() (*models.WorldClock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchClock()
}

func (s *MemoryStore) SaveClock(clock *models.WorldClock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveClock(clock)
}

func (s *MemoryStore) FetchFund() (*models.Fund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchFund()
}

func (s *MemoryStore) SaveFund(fund *models.Fund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveFund(fund)
}

func (s *MemoryStore) FetchSubjects() ([]*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchSubjects()
}

func (s *MemoryStore) FetchSubject(id uuid.UUID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchSubject(id)
}

func (s *MemoryStore) FetchSubjectByTicker(ticker string) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchSubjectByTicker(ticker)
}

func (s *MemoryStore) SaveSubject(subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveSubject(subject)
}

func (s *MemoryStore) FetchPatients(status *models.PatientStatus) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchPatients(status)
}

func (s *MemoryStore) FetchPatient(id uuid.UUID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchPatient(id)
}

func (s *MemoryStore) FetchActivePatient(subjectID uuid.UUID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchActivePatient(subjectID)
}

func (s *MemoryStore) SavePatient(patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SavePatient(patient)
}

func (s *MemoryStore) FetchPositions(filter models.PositionFilter) ([]*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchPositions(filter)
}

func (s *MemoryStore) CountPositions() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CountPositions()
}

func (s *MemoryStore) SavePosition(position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SavePosition(position)
}

func (s *MemoryStore) FetchTrades(limit int) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchTrades(limit)
}

func (s *MemoryStore) InsertTrade(trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertTrade(trade)
}

func (s *MemoryStore) FetchPriceHistory(ticker string, limit int) ([]*models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchPriceHistory(ticker, limit)
}

func (s *MemoryStore) InsertPricePoint(point *models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertPricePoint(point)
}

func (s *MemoryStore) FetchMemories(memoryType *models.MemoryType, limit int) ([]*models.AgentMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FetchMemories(memoryType, limit)
}

func (s *MemoryStore) InsertMemory(memory *models.AgentMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertMemory(memory)
}
