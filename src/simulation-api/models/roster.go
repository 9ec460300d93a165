package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RosterEntry describes one subject created when the world is seeded.
// Complaint is only used for subjects that start out critical.
type RosterEntry struct {
	Name          string        `yaml:"name"`
	Company       string        `yaml:"company"`
	Ticker        string        `yaml:"ticker"`
	Age           int           `yaml:"age"`
	Price         float64       `yaml:"price"`
	NetWorth      float64       `yaml:"net_worth"`
	Status        SubjectStatus `yaml:"status"`
	Complaint     string        `yaml:"complaint"`
	HealthProfile HealthProfile `yaml:"health_profile"`
}

func (e RosterEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}

	if e.Ticker == "" {
		return fmt.Errorf("%s: ticker is required", e.Name)
	}

	if e.Price <= 0 {
		return fmt.Errorf("%s: price must be greater than 0", e.Ticker)
	}

	if e.Status != SubjectStatusAlive && e.Status != SubjectStatusCritical {
		return fmt.Errorf("%s: %w: roster subjects start alive or critical, got %q", e.Ticker, ErrInvalidTransition, e.Status)
	}

	return nil
}

func (e RosterEntry) NewSubject(createdAt time.Time) *Subject {
	return &Subject{
		ID:            uuid.New(),
		Name:          e.Name,
		Company:       e.Company,
		Ticker:        strings.ToUpper(e.Ticker),
		Age:           e.Age,
		Price:         e.Price,
		NetWorth:      e.NetWorth,
		HealthProfile: e.HealthProfile.Clone(),
		Status:        e.Status,
		CreatedAt:     createdAt,
	}
}

type Roster struct {
	Subjects []RosterEntry `yaml:"subjects"`
}

func (r *Roster) Validate() error {
	if len(r.Subjects) == 0 {
		return fmt.Errorf("roster has no subjects")
	}

	seen := make(map[string]struct{}, len(r.Subjects))
	for _, e := range r.Subjects {
		if err := e.Validate(); err != nil {
			return err
		}

		ticker := strings.ToUpper(e.Ticker)
		if _, found := seen[ticker]; found {
			return fmt.Errorf("duplicate ticker %s", ticker)
		}
		seen[ticker] = struct{}{}
	}

	return nil
}

type SeedStatus string

const (
	SeedStatusSeeded        SeedStatus = "seeded"
	SeedStatusAlreadySeeded SeedStatus = "already_seeded"
)

type SeedResult struct {
	Status   SeedStatus `json:"status"`
	Subjects int        `json:"subjects,omitempty"`
	Patients int        `json:"patients,omitempty"`
}
