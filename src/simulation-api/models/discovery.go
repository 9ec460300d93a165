package models

const (
	DefaultShortThreshold       = 1000
	DefaultDiscoveryProbability = 0.03
)

// DiscoveryParams tune the discovery rule. A nil Probability means the
// default; zero switches discovery off.
type DiscoveryParams struct {
	ShortThreshold int      `json:"short_threshold" yaml:"short_threshold"`
	Probability    *float64 `json:"probability" yaml:"probability"`
}

func DefaultDiscoveryParams() DiscoveryParams {
	return DiscoveryParams{
		ShortThreshold: DefaultShortThreshold,
		Probability:    DiscoveryProbability(DefaultDiscoveryProbability),
	}
}

func DiscoveryProbability(p float64) *float64 {
	return &p
}

func (p DiscoveryParams) probability() float64 {
	if p.Probability == nil {
		return DefaultDiscoveryProbability
	}

	return *p.Probability
}

// IsDiscovered reports whether unusual short interest against a critical
// subject makes them seek real treatment this tick.
func IsDiscovered(status SubjectStatus, openShortQuantity int, draw float64, params DiscoveryParams) bool {
	if status != SubjectStatusCritical {
		return false
	}

	if openShortQuantity <= params.ShortThreshold {
		return false
	}

	return draw < params.probability()
}

func OpenShortQuantity(positions []*Position, ticker string) int {
	total := 0
	for _, p := range positions {
		if p.Ticker == ticker && p.Side == PositionSideShort && p.Status == PositionStatusOpen {
			total += p.Quantity
		}
	}

	return total
}
