package models

type SimulationParams struct {
	InitialBalance float64         `json:"initial_balance" yaml:"initial_balance"`
	Speed          float64         `json:"speed" yaml:"speed"`
	PriceFloor     float64         `json:"price_floor" yaml:"price_floor"`
	VitalsHistory  int             `json:"vitals_history" yaml:"vitals_history"`
	Discovery      DiscoveryParams `json:"discovery" yaml:"discovery"`

	// LargeStepWarningDays is the simulated step length above which a tick
	// logs a warning. Steps are never subdivided.
	LargeStepWarningDays float64 `json:"large_step_warning_days" yaml:"large_step_warning_days"`
}

func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		InitialBalance:       DefaultInitialBalance,
		Speed:                DefaultSpeed,
		PriceFloor:           DefaultPriceFloor,
		VitalsHistory:        DefaultVitalsHistory,
		Discovery:            DefaultDiscoveryParams(),
		LargeStepWarningDays: 1,
	}
}

// WithDefaults fills every unset field from DefaultSimulationParams.
func (p SimulationParams) WithDefaults() SimulationParams {
	d := DefaultSimulationParams()

	if p.InitialBalance <= 0 {
		p.InitialBalance = d.InitialBalance
	}

	if p.Speed <= 0 {
		p.Speed = d.Speed
	}

	if p.PriceFloor <= 0 {
		p.PriceFloor = d.PriceFloor
	}

	if p.VitalsHistory <= 0 {
		p.VitalsHistory = d.VitalsHistory
	}

	if p.Discovery.ShortThreshold <= 0 {
		p.Discovery.ShortThreshold = d.Discovery.ShortThreshold
	}

	if p.Discovery.Probability == nil || *p.Discovery.Probability < 0 {
		p.Discovery.Probability = d.Discovery.Probability
	}

	if p.LargeStepWarningDays <= 0 {
		p.LargeStepWarningDays = d.LargeStepWarningDays
	}

	return p
}
