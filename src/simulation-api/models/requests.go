package models

import (
	"fmt"

	"github.com/google/uuid"
)

type AdmitRequest struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Complaint string    `json:"presenting_complaint"`
	Severity  float64   `json:"severity"`
}

func (req *AdmitRequest) Validate() error {
	if req.SubjectID == uuid.Nil {
		return fmt.Errorf("subject_id is required")
	}

	if req.Severity < 0 || req.Severity > 1 {
		return ErrInvalidSeverity
	}

	return nil
}

type DiagnoseRequest struct {
	Diagnosis  string  `json:"diagnosis"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (req *DiagnoseRequest) Validate() error {
	if req.Diagnosis == "" {
		return fmt.Errorf("diagnosis is required")
	}

	if req.Confidence < 0 || req.Confidence > 1 {
		return ErrInvalidConfidence
	}

	return nil
}

type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

type SetSpeedRequest struct {
	Speed float64 `json:"speed"`
}

// ListRequest carries the common query-string options of list endpoints.
type ListRequest struct {
	Limit  int    `schema:"limit"`
	Status string `schema:"status"`
	Type   string `schema:"type"`
	Ticker string `schema:"ticker"`
}

type WorldState struct {
	Clock          *WorldClock           `json:"clock"`
	Subjects       []*Subject            `json:"subjects"`
	ActivePatients []*PatientWithSubject `json:"active_patients"`
	OpenPositions  []*Position           `json:"open_positions"`
	Fund           *FundSummary          `json:"fund"`
	RecentMemories []*AgentMemory        `json:"recent_memories"`
}
