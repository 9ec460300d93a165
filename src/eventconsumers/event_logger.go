package eventconsumers

import (
	log "github.com/sirupsen/logrus"

	pubsub "github.com/jiaming2012/ward-market/src/eventpubsub"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// EventLogger writes every world event to the structured log.
type EventLogger struct{}

func (c *EventLogger) handle(ev *models.WorldEvent) {
	fields := log.Fields{
		"type":     ev.Type,
		"sim_time": ev.SimTime,
	}

	if ev.Ticker != "" {
		fields["ticker"] = ev.Ticker
	}

	if ev.Action != "" {
		fields["action"] = ev.Action
		fields["quantity"] = ev.Quantity
		fields["price"] = ev.Price
	}

	if ev.Type == models.WorldEventPositionClosed {
		fields["pnl"] = ev.PnL
	}

	log.WithFields(fields).Info(ev.Text)
}

func (c *EventLogger) Start(bus *pubsub.Bus) error {
	if err := bus.SubscribeAll(c.handle); err != nil {
		return err
	}

	log.Info("started EventLogger consumer")
	return nil
}

func NewEventLogger() *EventLogger {
	return &EventLogger{}
}
