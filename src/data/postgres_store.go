package data

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// worldLockKey is the advisory lock every world transaction holds, so that
// separate processes sharing the database apply mutations one at a time.
const worldLockKey int64 = 0x77617264

// PostgresStore persists the world through gorm. The same type serves as the
// transaction handle, bound to the *gorm.DB of the running transaction.
type PostgresStore struct {
	db   *gorm.DB
	inTx bool
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Transaction runs fn holding the world lock until commit or rollback.
func (s *PostgresStore) Transaction(fn func(tx models.IWorldStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", worldLockKey).Error; err != nil {
			return fmt.Errorf("failed to acquire world lock: %w", err)
		}

		return fn(&PostgresStore{db: tx, inTx: true})
	})
}

// forUpdate locks the selected singleton rows for the rest of the transaction.
func (s *PostgresStore) forUpdate() *gorm.DB {
	if !s.inTx {
		return s.db
	}

	return s.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func wrapNotFound(err error, kind string, key interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(kind, key)
	}

	return fmt.Errorf("failed to fetch %s %v: %w", kind, key, err)
}

func (s *PostgresStore) FetchClock() (*models.WorldClock, error) {
	var clock models.WorldClock
	if err := s.forUpdate().First(&clock).Error; err != nil {
		return nil, wrapNotFound(err, "clock", "singleton")
	}

	return &clock, nil
}

func (s *PostgresStore) SaveClock(clock *models.WorldClock) error {
	if err := s.db.Save(clock).Error; err != nil {
		return fmt.Errorf("saveClock: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchFund() (*models.Fund, error) {
	var fund models.Fund
	if err := s.forUpdate().First(&fund).Error; err != nil {
		return nil, wrapNotFound(err, "fund", "singleton")
	}

	return &fund, nil
}

func (s *PostgresStore) SaveFund(fund *models.Fund) error {
	if err := s.db.Save(fund).Error; err != nil {
		return fmt.Errorf("saveFund: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchSubjects() ([]*models.Subject, error) {
	var subjects []*models.Subject
	if err := s.db.Order("created_at asc, ticker asc").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("fetchSubjects: %w", err)
	}

	return subjects, nil
}

func (s *PostgresStore) FetchSubject(id uuid.UUID) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.First(&subject, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "subject", id)
	}

	return &subject, nil
}

func (s *PostgresStore) FetchSubjectByTicker(ticker string) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.First(&subject, "ticker = ?", ticker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticker %s: %w", ticker, models.ErrUnknownTicker)
		}

		return nil, fmt.Errorf("fetchSubjectByTicker: %w", err)
	}

	return &subject, nil
}

func (s *PostgresStore) SaveSubject(subject *models.Subject) error {
	if err := s.db.Save(subject).Error; err != nil {
		return fmt.Errorf("saveSubject: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchPatients(status *models.PatientStatus) ([]*models.Patient, error) {
	query := s.db.Order("admitted_at asc")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var patients []*models.Patient
	if err := query.Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("fetchPatients: %w", err)
	}

	return patients, nil
}

func (s *PostgresStore) FetchPatient(id uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.First(&patient, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "patient", id)
	}

	return &patient, nil
}

func (s *PostgresStore) FetchActivePatient(subjectID uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.First(&patient, "subject_id = ? AND status = ?", subjectID, models.PatientStatusActive).Error; err != nil {
		return nil, wrapNotFound(err, "active patient for subject", subjectID)
	}

	return &patient, nil
}

func (s *PostgresStore) SavePatient(patient *models.Patient) error {
	if err := s.db.Save(patient).Error; err != nil {
		return fmt.Errorf("savePatient: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchPositions(filter models.PositionFilter) ([]*models.Position, error) {
	query := s.db.Order("opened_at asc, sequence asc")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Ticker != "" {
		query = query.Where("ticker = ?", filter.Ticker)
	}

	if filter.Side != "" {
		query = query.Where("side = ?", filter.Side)
	}

	var positions []*models.Position
	if err := query.Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("fetchPositions: %w", err)
	}

	return positions, nil
}

func (s *PostgresStore) CountPositions() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Position{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("countPositions: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) SavePosition(position *models.Position) error {
	if err := s.db.Save(position).Error; err != nil {
		return fmt.Errorf("savePosition: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchTrades(limit int) ([]*models.Trade, error) {
	query := s.db.Order("created_at desc, sequence desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var trades []*models.Trade
	if err := query.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("fetchTrades: %w", err)
	}

	return trades, nil
}

func (s *PostgresStore) InsertTrade(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("insertTrade: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchPriceHistory(ticker string, limit int) ([]*models.PricePoint, error) {
	query := s.db.Where("ticker = ?", ticker).Order("sim_time desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var points []*models.PricePoint
	if err := query.Find(&points).Error; err != nil {
		return nil, fmt.Errorf("fetchPriceHistory: %w", err)
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

func (s *PostgresStore) InsertPricePoint(point *models.PricePoint) error {
	if err := s.db.Create(point).Error; err != nil {
		return fmt.Errorf("insertPricePoint: %w", err)
	}

	return nil
}

func (s *PostgresStore) FetchMemories(memoryType *models.MemoryType, limit int) ([]*models.AgentMemory, error) {
	query := s.db.Order("created_at desc")
	if memoryType != nil {
		query = query.Where("type = ?", *memoryType)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var memories []*models.AgentMemory
	if err := query.Find(&memories).Error; err != nil {
		return nil, fmt.Errorf("fetchMemories: %w", err)
	}

	return memories, nil
}

func (s *PostgresStore) InsertMemory(memory *models.AgentMemory) error {
	if err := s.db.Create(memory).Error; err != nil {
		return fmt.Errorf("insertMemory: %w", err)
	}

	return nil
}
