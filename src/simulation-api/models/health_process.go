package models

import (
	"math"
	"time"
)

const (
	DeathSeverity         = 0.95
	HighSeverity          = 0.85
	VitalsWarningSeverity = 0.8
	StabilizeDraw         = 0.95
	DefaultVitalsHistory  = 50
)

type VitalsRange struct {
	Min float64
	Max float64
}

func (r VitalsRange) clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

func (r VitalsRange) clampInt(v int) int {
	return int(r.clamp(float64(v)))
}

var (
	HeartRateRange        = VitalsRange{Min: 40, Max: 180}
	SystolicRange         = VitalsRange{Min: 80, Max: 200}
	DiastolicRange        = VitalsRange{Min: 50, Max: 120}
	TemperatureRange      = VitalsRange{Min: 35.5, Max: 41.0}
	OxygenSaturationRange = VitalsRange{Min: 70, Max: 100}
)

type HealthInput struct {
	Last       Vitals
	Severity   float64
	Trajectory Trajectory
	SimTime    time.Time
}

type HealthOutcome struct {
	Vitals     Vitals
	Severity   float64
	Trajectory Trajectory
	Died       bool
}

// SeverityDelta is the per-tick severity change for a trajectory. Only the
// sign and rate depend on the trajectory; the current severity does not.
func SeverityDelta(trajectory Trajectory, draw float64) float64 {
	switch trajectory {
	case TrajectoryDeclining:
		return 0.01 + draw*0.02
	case TrajectoryImproving:
		return -(0.01 + draw*0.02)
	default:
		return (draw - 0.5) * 0.02
	}
}

// HealthStep advances one patient by one tick.
func HealthStep(in HealthInput, draw float64) HealthOutcome {
	severity := math.Max(0, math.Min(1, in.Severity+SeverityDelta(in.Trajectory, draw)))

	hrSwing := 1.0
	if severity > VitalsWarningSeverity {
		hrSwing = 3.0
	}

	next := Vitals{
		SimTime:          in.SimTime,
		HeartRate:        HeartRateRange.clampInt(in.Last.HeartRate + int(math.Floor((draw-0.4)*10*hrSwing))),
		Systolic:         SystolicRange.clampInt(in.Last.Systolic + int(math.Floor((draw-0.45)*15))),
		Diastolic:        DiastolicRange.clampInt(90 + int(math.Floor((draw-0.5)*10))),
		Temperature:      TemperatureRange.clamp(in.Last.Temperature + (draw-0.48)*0.3),
		OxygenSaturation: OxygenSaturationRange.clampInt(in.Last.OxygenSaturation + int(math.Floor((0.52-draw)*3))),
	}

	if severity >= DeathSeverity {
		return HealthOutcome{
			Vitals:     next,
			Severity:   1.0,
			Trajectory: TrajectoryDeclining,
			Died:       true,
		}
	}

	trajectory := in.Trajectory
	if severity > HighSeverity && trajectory != TrajectoryDeclining {
		trajectory = TrajectoryDeclining
	} else if trajectory == TrajectoryDeclining && draw > StabilizeDraw {
		trajectory = TrajectoryStable
	}

	return HealthOutcome{
		Vitals:     next,
		Severity:   severity,
		Trajectory: trajectory,
	}
}

// AppendVitals keeps only the trailing limit entries.
func AppendVitals(history []Vitals, v Vitals, limit int) []Vitals {
	if limit <= 0 {
		limit = DefaultVitalsHistory
	}

	out := append(append([]Vitals(nil), history...), v)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out
}

// AdmissionVitals draws the first snapshot recorded when a subject is admitted.
func AdmissionVitals(simTime time.Time, seed float64, random RandomFunc) Vitals {
	return Vitals{
		SimTime:          simTime,
		HeartRate:        88 + int(math.Floor(random(seed+1)*30)),
		Systolic:         140 + int(math.Floor(random(seed+2)*30)),
		Diastolic:        80 + int(math.Floor(random(seed+3)*20)),
		Temperature:      37.0 + random(seed+4)*1.5,
		OxygenSaturation: 88 + int(math.Floor(random(seed+5)*8)),
	}
}
