package models

import "math"

const DefaultPriceFloor = 0.01

type PriceParams struct {
	Drift      float64 `json:"drift" yaml:"drift"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

var (
	AlivePriceParams    = PriceParams{Drift: -0.0001, Volatility: 0.02}
	CriticalPriceParams = PriceParams{Drift: -0.003, Volatility: 0.05}
	DeceasedPriceParams = PriceParams{Drift: -0.01, Volatility: 0.08}
	CuredPriceParams    = PriceParams{Drift: 0.005, Volatility: 0.06}

	// ReboundPriceParams replace the status table for the tick in which a
	// subject is discovered.
	ReboundPriceParams = PriceParams{Drift: 0.15, Volatility: 0.10}
)

func PriceParamsForStatus(status SubjectStatus) PriceParams {
	switch status {
	case SubjectStatusCritical:
		return CriticalPriceParams
	case SubjectStatusDeceased:
		return DeceasedPriceParams
	case SubjectStatusCured:
		return CuredPriceParams
	default:
		return AlivePriceParams
	}
}

// StandardNormal turns one uniform draw into a standard normal variate using
// a Box-Muller transform; the second uniform is derived from the first.
func StandardNormal(draw float64) float64 {
	u1 := math.Max(draw, 0.0001)
	u2 := SeededRandom(draw * 10000)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// PriceStep applies one geometric brownian motion step over dt days. The
// result never drops below floor.
func PriceStep(price float64, params PriceParams, dt float64, draw float64, floor float64) float64 {
	if floor <= 0 {
		floor = DefaultPriceFloor
	}

	if dt < 0 {
		dt = 0
	}

	change := params.Drift*dt + params.Volatility*math.Sqrt(dt)*StandardNormal(draw)
	next := price * (1 + change)
	if math.IsNaN(next) || next < floor {
		return floor
	}

	return next
}

// TradedVolume is the synthetic volume recorded with each price point.
func TradedVolume(prev, next, draw float64) int64 {
	if prev <= 0 {
		return int64(math.Floor(draw * 2_000_000))
	}

	return int64(math.Floor(math.Abs(next-prev)/prev*10_000_000 + draw*2_000_000))
}
