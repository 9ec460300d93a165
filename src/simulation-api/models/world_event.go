package models

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type WorldEventType string

const (
	WorldEventTradeExecuted     WorldEventType = "trade_executed"
	WorldEventPositionClosed    WorldEventType = "position_closed"
	WorldEventSubjectDiscovered WorldEventType = "subject_discovered"
	WorldEventPatientDeceased   WorldEventType = "patient_deceased"
)

// WorldEvent is a narrative side effect of a trade or a tick. Sinks decide
// whether and how to render it.
type WorldEvent struct {
	Type        WorldEventType `json:"type"`
	Text        string         `json:"text"`
	Ticker      string         `json:"ticker,omitempty"`
	SubjectName string         `json:"subject_name,omitempty"`
	Action      TradeAction    `json:"action,omitempty"`
	Quantity    int            `json:"quantity,omitempty"`
	Price       float64        `json:"price,omitempty"`
	PnL         float64        `json:"pnl,omitempty"`
	SimTime     time.Time      `json:"sim_time"`
	CreatedAt   time.Time      `json:"created_at"`
}

var printer = message.NewPrinter(language.English)

func NewTradeExecutedEvent(p *Position, action TradeAction, createdAt time.Time) *WorldEvent {
	verb := "bought"
	if action == TradeActionShort {
		verb = "shorted"
	}

	return &WorldEvent{
		Type:      WorldEventTradeExecuted,
		Text:      printer.Sprintf("TRADE EXECUTED: %s %d shares of %s at $%.2f ($%.2f total)", verb, p.Quantity, p.Ticker, p.EntryPrice, p.Cost()),
		Ticker:    p.Ticker,
		Action:    action,
		Quantity:  p.Quantity,
		Price:     p.EntryPrice,
		SimTime:   p.OpenedAt,
		CreatedAt: createdAt,
	}
}

func NewPositionClosedEvent(p *Position, action TradeAction, realizedPnL float64, simTime, createdAt time.Time) *WorldEvent {
	verb := "sold"
	if action == TradeActionCover {
		verb = "covered"
	}

	sign := ""
	if realizedPnL >= 0 {
		sign = "+"
	}

	return &WorldEvent{
		Type:      WorldEventPositionClosed,
		Text:      printer.Sprintf("POSITION CLOSED: %s %s. P&L: %s$%.2f", verb, p.Ticker, sign, realizedPnL),
		Ticker:    p.Ticker,
		Action:    action,
		Quantity:  p.Quantity,
		Price:     p.CurrentPrice,
		PnL:       realizedPnL,
		SimTime:   simTime,
		CreatedAt: createdAt,
	}
}

func NewSubjectDiscoveredEvent(s *Subject, openShortQuantity int, simTime, createdAt time.Time) *WorldEvent {
	return &WorldEvent{
		Type:        WorldEventSubjectDiscovered,
		Text:        printer.Sprintf("MARKET ALERT: %s (%s) spotted unusual short interest in company stock and checked in for outside treatment. Stock rebounding sharply.", s.Name, s.Ticker),
		Ticker:      s.Ticker,
		SubjectName: s.Name,
		Quantity:    openShortQuantity,
		Price:       s.Price,
		SimTime:     simTime,
		CreatedAt:   createdAt,
	}
}

func NewPatientDeceasedEvent(s *Subject, simTime, createdAt time.Time) *WorldEvent {
	return &WorldEvent{
		Type:        WorldEventPatientDeceased,
		Text:        printer.Sprintf("%s has been pronounced dead. Time of death: sim-%s.", s.Name, simTime.UTC().Format(time.RFC3339)),
		Ticker:      s.Ticker,
		SubjectName: s.Name,
		Price:       s.Price,
		SimTime:     simTime,
		CreatedAt:   createdAt,
	}
}
