// internal/adapter/events/publisher.go

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects published by the service
const (
	SubjectMapFeaturesComputed = "mapfeatures.computed"
	SubjectFacilitiesImported  = "facilities.imported"
)

// Event is the envelope of every published message
type Event struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

// Publisher publishes domain events
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// NATSPublisher publishes events on a NATS connection
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher creates a new publisher. Subjects are prefixed with
// prefix and a dot when prefix is set.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{
		conn:   conn,
		prefix: prefix,
	}
}

// Subject returns the full subject name for a short subject
func (p *NATSPublisher) Subject(subject string) string {
	if p.prefix == "" {
		return subject
	}
	return fmt.Sprintf("%s.%s", p.prefix, subject)
}

// Publish marshals data into an event envelope and publishes it
func (p *NATSPublisher) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(Event{
		ID:   uuid.New().String(),
		Type: subject,
		Time: time.Now().UTC(),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	if err := p.conn.Publish(p.Subject(subject), payload); err != nil {
		return fmt.Errorf("error publishing %s: %w", subject, err)
	}

	return nil
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(string, interface{}) error { return nil }
