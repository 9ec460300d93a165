package models

import "github.com/google/uuid"

// IWorldStore is the storage collaborator. Fetches return copies; nothing is
// persisted until the matching Save or Insert call. Lookups that find nothing
// return an error wrapping ErrNotFound.
type IWorldStore interface {
	FetchClock() (*WorldClock, error)
	SaveClock(clock *WorldClock) error
	FetchFund() (*Fund, error)
	SaveFund(fund *Fund) error

	FetchSubjects() ([]*Subject, error)
	FetchSubject(id uuid.UUID) (*Subject, error)
	FetchSubjectByTicker(ticker string) (*Subject, error)
	SaveSubject(subject *Subject) error

	FetchPatients(status *PatientStatus) ([]*Patient, error)
	FetchPatient(id uuid.UUID) (*Patient, error)
	FetchActivePatient(subjectID uuid.UUID) (*Patient, error)
	SavePatient(patient *Patient) error

	// FetchPositions returns matches ordered by OpenedAt, then Sequence.
	FetchPositions(filter PositionFilter) ([]*Position, error)
	CountPositions() (int64, error)
	SavePosition(position *Position) error

	// FetchTrades returns the newest trades first.
	FetchTrades(limit int) ([]*Trade, error)
	InsertTrade(trade *Trade) error

	// FetchPriceHistory returns the latest limit points, oldest first.
	FetchPriceHistory(ticker string, limit int) ([]*PricePoint, error)
	InsertPricePoint(point *PricePoint) error

	// FetchMemories returns the newest memories first.
	FetchMemories(memoryType *MemoryType, limit int) ([]*AgentMemory, error)
	InsertMemory(memory *AgentMemory) error
}

// IWorldDatabase runs fn against a transactional view of the store. Nothing
// fn wrote is visible to other callers unless it returns nil.
type IWorldDatabase interface {
	IWorldStore
	Transaction(fn func(tx IWorldStore) error) error
}
