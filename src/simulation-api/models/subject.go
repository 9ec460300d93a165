package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SubjectStatus string

const (
	SubjectStatusAlive    SubjectStatus = "alive"
	SubjectStatusCritical SubjectStatus = "critical"
	SubjectStatusDeceased SubjectStatus = "deceased"
	SubjectStatusCured    SubjectStatus = "cured"
)

func (s SubjectStatus) Validate() error {
	switch s {
	case SubjectStatusAlive, SubjectStatusCritical, SubjectStatusDeceased, SubjectStatusCured:
		return nil
	}

	return fmt.Errorf("invalid subject status: %q", s)
}

// IsTerminal reports whether the subject can no longer change status.
func (s SubjectStatus) IsTerminal() bool {
	return s == SubjectStatusDeceased || s == SubjectStatusCured
}

type HealthProfile struct {
	Conditions    []string `json:"conditions" yaml:"conditions"`
	RiskFactors   []string `json:"risk_factors" yaml:"risk_factors"`
	Medications   []string `json:"medications" yaml:"medications"`
	FamilyHistory []string `json:"family_history" yaml:"family_history"`
	Lifestyle     string   `json:"lifestyle" yaml:"lifestyle"`
}

func (p HealthProfile) Clone() HealthProfile {
	return HealthProfile{
		Conditions:    append([]string(nil), p.Conditions...),
		RiskFactors:   append([]string(nil), p.RiskFactors...),
		Medications:   append([]string(nil), p.Medications...),
		FamilyHistory: append([]string(nil), p.FamilyHistory...),
		Lifestyle:     p.Lifestyle,
	}
}

type Subject struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string        `json:"name" gorm:"not null"`
	Company       string        `json:"company"`
	Ticker        string        `json:"ticker" gorm:"uniqueIndex;not null"`
	Age           int           `json:"age"`
	Price         float64       `json:"price" gorm:"type:numeric;not null"`
	NetWorth      float64       `json:"net_worth" gorm:"type:numeric"`
	HealthProfile HealthProfile `json:"health_profile" gorm:"serializer:json;type:jsonb"`
	Status        SubjectStatus `json:"status" gorm:"index;not null"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (s *Subject) Clone() *Subject {
	c := *s
	c.HealthProfile = s.HealthProfile.Clone()
	return &c
}

type LatestPrice struct {
	Ticker  string        `json:"ticker"`
	Name    string        `json:"name"`
	Company string        `json:"company"`
	Price   float64       `json:"price"`
	Status  SubjectStatus `json:"status"`
}
