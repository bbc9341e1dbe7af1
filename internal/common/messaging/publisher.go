package messaging

import (
	"time"

	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/sirupsen/logrus"
)

// Publisher stamps events with the run ID and sends them through a Client.
// Publish failures are logged and never returned. A nil Publisher drops events.
type Publisher struct {
	client   Client
	exchange string
	runID    string
	log      *logrus.Logger
	now      func() time.Time
}

// NewPublisher creates a Publisher for one run
func NewPublisher(client Client, exchange, runID string, log *logrus.Logger) *Publisher {
	return &Publisher{
		client:   client,
		exchange: exchange,
		runID:    runID,
		log:      log,
		now:      time.Now,
	}
}

// RunID returns the ID stamped on every event
func (p *Publisher) RunID() string {
	if p == nil {
		return ""
	}
	return p.runID
}

// Publish sends ev with the given routing key
func (p *Publisher) Publish(routingKey string, ev models.Event) {
	if p == nil || p.client == nil {
		return
	}

	ev.RunID = p.runID
	if ev.Time.IsZero() {
		ev.Time = p.now()
	}

	if err := p.client.PublishJSON(p.exchange, routingKey, ev); err != nil {
		p.log.WithFields(logrus.Fields{
			"component":   "messaging",
			"routing_key": routingKey,
			"type":        ev.Type,
		}).WithError(err).Warn("Failed to publish event")
	}
}
