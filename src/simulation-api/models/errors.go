package models

import "fmt"

var (
	ErrUnknownTicker        = fmt.Errorf("unknown ticker")
	ErrInsufficientFunds    = fmt.Errorf("insufficient funds")
	ErrNoOpenPosition       = fmt.Errorf("no open position")
	ErrNotFound             = fmt.Errorf("not found")
	ErrInvalidQuantity      = fmt.Errorf("invalid quantity: must be greater than 0")
	ErrInvalidAction        = fmt.Errorf("invalid trade action")
	ErrInvalidSpeed         = fmt.Errorf("invalid speed: must be greater than 0")
	ErrInvalidSeverity      = fmt.Errorf("invalid severity: must be between 0 and 1")
	ErrInvalidConfidence    = fmt.Errorf("invalid confidence: must be between 0 and 1")
	ErrInvalidMemoryType    = fmt.Errorf("invalid memory type")
	ErrPatientAlreadyActive = fmt.Errorf("subject already has an active patient record")
	ErrInvalidTransition    = fmt.Errorf("invalid status transition")
	ErrWorldNotSeeded       = fmt.Errorf("world has not been seeded")
)
