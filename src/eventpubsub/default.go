package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

// Bus fans world events out to asynchronous subscribers. Each subscriber
// receives its events in publish order.
type Bus struct {
	bus EventBus.Bus
}

func New() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(event *models.WorldEvent) {
	topic, found := TopicFor(event.Type)
	if !found {
		log.Warnf("eventpubsub: no topic for event type %s", event.Type)
		return
	}

	b.bus.Publish(topic, event)
}

// Subscribe registers callbackFn, a func(*models.WorldEvent), on topic.
func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	if err := b.bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		return err
	}

	log.Infof("Subscribed to topic %s", topic)
	return nil
}

func (b *Bus) SubscribeAll(callbackFn func(*models.WorldEvent)) error {
	for _, topic := range Topics {
		if err := b.Subscribe(topic, callbackFn); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bus) Unsubscribe(topic string, callbackFn interface{}) error {
	return b.bus.Unsubscribe(topic, callbackFn)
}

// WaitAsync blocks until every delivered event has been handled.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
