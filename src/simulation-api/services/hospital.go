package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// Admit opens a patient record for an alive subject and marks the subject
// critical. Admission vitals are drawn from the seeded generator.
func (s *WorldService) Admit(ctx context.Context, req *models.AdmitRequest) (*models.Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("admit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var patient *models.Patient
	err := s.db.Transaction(func(tx models.IWorldStore) error {
		var err error
		patient, err = s.admit(tx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("admit: %w", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"subject_id": req.SubjectID,
		"severity":   req.Severity,
	}).Info("patient admitted")

	return patient, nil
}

func (s *WorldService) admit(tx models.IWorldStore, req *models.AdmitRequest) (*models.Patient, error) {
	subject, err := tx.FetchSubject(req.SubjectID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.FetchActivePatient(subject.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrPatientAlreadyActive, subject.Ticker)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch active patient: %w", err)
	}

	if subject.Status != models.SubjectStatusAlive {
		return nil, fmt.Errorf("%w: cannot admit %s subject %s", models.ErrInvalidTransition, subject.Status, subject.Ticker)
	}

	clock, err := tx.FetchClock()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clock: %w", err)
	}

	seed := float64(clock.TickCount) + subject.Price + req.Severity
	vitals := models.AdmissionVitals(clock.SimTime, seed, s.random)
	patient := models.NewPatient(subject.ID, req.Complaint, req.Severity, vitals, clock.SimTime)

	subject.Status = models.SubjectStatusCritical
	if err := tx.SaveSubject(subject); err != nil {
		return nil, fmt.Errorf("failed to save subject: %w", err)
	}

	if err := tx.SavePatient(patient); err != nil {
		return nil, fmt.Errorf("failed to save patient: %w", err)
	}

	return patient, nil
}

// Diagnose records the agent's working diagnosis on a patient and files it
// as a diagnosis memory. Terminal records accept the annotation too.
func (s *WorldService) Diagnose(ctx context.Context, patientID uuid.UUID, req *models.DiagnoseRequest) (*models.Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("diagnose: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var patient *models.Patient

	err := s.db.Transaction(func(tx models.IWorldStore) error {
		var err error
		patient, err = tx.FetchPatient(patientID)
		if err != nil {
			return err
		}

		subject, err := tx.FetchSubject(patient.SubjectID)
		if err != nil {
			return err
		}

		clock, err := tx.FetchClock()
		if err != nil {
			return fmt.Errorf("failed to fetch clock: %w", err)
		}

		confidence := req.Confidence
		patient.Diagnosis = req.Diagnosis
		patient.DiagnosisConfidence = &confidence
		patient.DiagnosisReasoning = req.Reasoning

		if err := tx.SavePatient(patient); err != nil {
			return fmt.Errorf("failed to save patient: %w", err)
		}

		memory := models.NewAgentMemory(
			models.MemoryTypeDiagnosis,
			fmt.Sprintf("Diagnosis: %s - %s", subject.Name, req.Diagnosis),
			fmt.Sprintf("Confidence: %.0f%%. %s", confidence*100, req.Reasoning),
			clock.SimTime,
			now,
		)

		if err := tx.InsertMemory(memory); err != nil {
			return fmt.Errorf("failed to insert memory: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("diagnose: %w", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"patient_id": patientID,
		"diagnosis":  req.Diagnosis,
	}).Info("diagnosis recorded")

	return patient, nil
}
