package services

import (
	"context"
	"fmt"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

func (s *WorldService) WriteMemory(ctx context.Context, req *models.WriteMemoryRequest) (*models.AgentMemory, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("writeMemory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var memory *models.AgentMemory
	err := s.db.Transaction(func(tx models.IWorldStore) error {
		clock, err := tx.FetchClock()
		if err != nil {
			return fmt.Errorf("failed to fetch clock: %w", err)
		}

		memory = models.NewAgentMemory(req.Type, req.Title, req.Content, clock.SimTime, s.now())
		return tx.InsertMemory(memory)
	})
	if err != nil {
		return nil, fmt.Errorf("writeMemory: %w", err)
	}

	return memory, nil
}

func (s *WorldService) FetchMemories(ctx context.Context, memoryType *models.MemoryType, limit int) ([]*models.AgentMemory, error) {
	if memoryType != nil {
		if err := memoryType.Validate(); err != nil {
			return nil, fmt.Errorf("fetchMemories: %w", err)
		}
	}

	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	memories, err := s.db.FetchMemories(memoryType, limit)
	if err != nil {
		return nil, fmt.Errorf("fetchMemories: %w", err)
	}

	return memories, nil
}
