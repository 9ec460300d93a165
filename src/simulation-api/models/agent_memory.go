package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MemoryType string

const (
	MemoryTypeNote        MemoryType = "note"
	MemoryTypeDiagnosis   MemoryType = "diagnosis"
	MemoryTypeInsight     MemoryType = "insight"
	MemoryTypeGrudge      MemoryType = "grudge"
	MemoryTypeResearch    MemoryType = "research"
	MemoryTypeTradeThesis MemoryType = "trade_thesis"
)

func (t MemoryType) Validate() error {
	switch t {
	case MemoryTypeNote, MemoryTypeDiagnosis, MemoryTypeInsight, MemoryTypeGrudge, MemoryTypeResearch, MemoryTypeTradeThesis:
		return nil
	}

	return fmt.Errorf("%w: %q", ErrInvalidMemoryType, t)
}

type AgentMemory struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Type      MemoryType `json:"type" gorm:"index;not null"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	SimTime   time.Time  `json:"sim_time"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
}

func NewAgentMemory(memoryType MemoryType, title, content string, simTime, createdAt time.Time) *AgentMemory {
	return &AgentMemory{
		ID:        uuid.New(),
		Type:      memoryType,
		Title:     title,
		Content:   content,
		SimTime:   simTime,
		CreatedAt: createdAt,
	}
}

type WriteMemoryRequest struct {
	Type    MemoryType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
}

func (req *WriteMemoryRequest) Validate() error {
	if err := req.Type.Validate(); err != nil {
		return err
	}

	if req.Title == "" {
		return fmt.Errorf("title is required")
	}

	return nil
}
