package eventpubsub

import "github.com/jiaming2012/ward-market/src/simulation-api/models"

const (
	TradeExecuted     = "TradeExecuted"
	PositionClosed    = "PositionClosed"
	SubjectDiscovered = "SubjectDiscovered"
	PatientDeceased   = "PatientDeceased"
)

var Topics = []string{TradeExecuted, PositionClosed, SubjectDiscovered, PatientDeceased}

func TopicFor(eventType models.WorldEventType) (string, bool) {
	switch eventType {
	case models.WorldEventTradeExecuted:
		return TradeExecuted, true
	case models.WorldEventPositionClosed:
		return PositionClosed, true
	case models.WorldEventSubjectDiscovered:
		return SubjectDiscovered, true
	case models.WorldEventPatientDeceased:
		return PatientDeceased, true
	}

	return "", false
}
