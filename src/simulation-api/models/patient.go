package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientStatusActive     PatientStatus = "active"
	PatientStatusDischarged PatientStatus = "discharged"
	PatientStatusDeceased   PatientStatus = "deceased"
)

func (s PatientStatus) Validate() error {
	switch s {
	case PatientStatusActive, PatientStatusDischarged, PatientStatusDeceased:
		return nil
	}

	return fmt.Errorf("invalid patient status: %q", s)
}

type Trajectory string

const (
	TrajectoryDeclining Trajectory = "declining"
	TrajectoryStable    Trajectory = "stable"
	TrajectoryImproving Trajectory = "improving"
)

type Vitals struct {
	SimTime          time.Time `json:"sim_time"`
	HeartRate        int       `json:"heart_rate"`
	Systolic         int       `json:"systolic"`
	Diastolic        int       `json:"diastolic"`
	Temperature      float64   `json:"temperature"`
	OxygenSaturation int       `json:"oxygen_saturation"`
	Notes            string    `json:"notes,omitempty"`
}

func (v Vitals) BloodPressure() string {
	return fmt.Sprintf("%d/%d", v.Systolic, v.Diastolic)
}

type Patient struct {
	ID                  uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectID           uuid.UUID     `json:"subject_id" gorm:"type:uuid;index;not null"`
	PresentingComplaint string        `json:"presenting_complaint"`
	Diagnosis           string        `json:"diagnosis,omitempty"`
	DiagnosisConfidence *float64      `json:"diagnosis_confidence,omitempty"`
	DiagnosisReasoning  string        `json:"diagnosis_reasoning,omitempty"`
	Severity            float64       `json:"severity" gorm:"not null"`
	Trajectory          Trajectory    `json:"trajectory" gorm:"not null"`
	Vitals              []Vitals      `json:"vitals" gorm:"serializer:json;type:jsonb"`
	Status              PatientStatus `json:"status" gorm:"index;not null"`
	AdmittedAt          time.Time     `json:"admitted_at"`
	DischargedAt        *time.Time    `json:"discharged_at,omitempty"`
}

func (p *Patient) Clone() *Patient {
	c := *p
	c.Vitals = append([]Vitals(nil), p.Vitals...)
	if p.DiagnosisConfidence != nil {
		confidence := *p.DiagnosisConfidence
		c.DiagnosisConfidence = &confidence
	}
	if p.DischargedAt != nil {
		at := *p.DischargedAt
		c.DischargedAt = &at
	}

	return &c
}

func (p *Patient) LatestVitals() (Vitals, bool) {
	if len(p.Vitals) == 0 {
		return Vitals{}, false
	}

	return p.Vitals[len(p.Vitals)-1], true
}

// Discharge ends the episode after the subject sought outside treatment.
func (p *Patient) Discharge(at time.Time) {
	p.Status = PatientStatusDischarged
	p.Trajectory = TrajectoryImproving
	p.DischargedAt = &at
}

// ApplyHealthOutcome writes a health step onto the record. A death outcome
// seals the record as deceased.
func (p *Patient) ApplyHealthOutcome(outcome HealthOutcome, historyLimit int) {
	p.Vitals = AppendVitals(p.Vitals, outcome.Vitals, historyLimit)
	p.Severity = outcome.Severity
	p.Trajectory = outcome.Trajectory

	if outcome.Died {
		at := outcome.Vitals.SimTime
		p.Status = PatientStatusDeceased
		p.DischargedAt = &at
	}
}

func NewPatient(subjectID uuid.UUID, complaint string, severity float64, vitals Vitals, admittedAt time.Time) *Patient {
	return &Patient{
		ID:                  uuid.New(),
		SubjectID:           subjectID,
		PresentingComplaint: complaint,
		Severity:            severity,
		Trajectory:          TrajectoryDeclining,
		Vitals:              []Vitals{vitals},
		Status:              PatientStatusActive,
		AdmittedAt:          admittedAt,
	}
}

type PatientWithSubject struct {
	*Patient
	Subject *Subject `json:"subject"`
}
