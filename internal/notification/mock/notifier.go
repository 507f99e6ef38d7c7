// Package mock provides a recording notifier for developer mode and tests.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/notification/types"
)

// ErrDeliveryFailed is returned while the notifier is set to fail.
var ErrDeliveryFailed = errors.New("mock delivery failed")

// NotificationRecord stores a sent notification for inspection.
type NotificationRecord struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"eventType"`
	Subscriber string    `json:"subscriber"`
	Message    string    `json:"message"`
	Data       any       `json:"data,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// Notifier logs all notifications and keeps the most recent ones in memory.
type Notifier struct {
	name   string
	logger zerolog.Logger

	mu         sync.RWMutex
	records    []NotificationRecord
	nextID     int64
	maxRecords int
	failing    bool
}

// New creates a new mock notifier
func New(name string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		name:       name,
		logger:     logger.With().Str("notifier", "mock").Str("name", name).Logger(),
		records:    make([]NotificationRecord, 0),
		nextID:     1,
		maxRecords: 100,
	}
}

func (n *Notifier) Type() types.NotifierType {
	return types.NotifierMock
}

func (n *Notifier) Name() string {
	return n.name
}

func (n *Notifier) OnReady(_ context.Context, event types.ReadyEvent) error {
	return n.recordNotification("ready", event.Subscriber, types.ReadyText(event), event)
}

func (n *Notifier) SendMessage(_ context.Context, event types.MessageEvent) error {
	return n.recordNotification("message", event.Subscriber, event.Text, event)
}

// SetFailing makes every delivery fail until reset.
func (n *Notifier) SetFailing(failing bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing = failing
}

// GetRecords returns all stored notification records
func (n *Notifier) GetRecords() []NotificationRecord {
	n.mu.RLock()
	defer n.mu.RUnlock()

	records := make([]NotificationRecord, len(n.records))
	copy(records, n.records)
	return records
}

// Clear removes all stored notification records
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = n.records[:0]
}

func (n *Notifier) recordNotification(eventType, subscriber, message string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failing {
		return ErrDeliveryFailed
	}

	record := NotificationRecord{
		ID:         n.nextID,
		EventType:  eventType,
		Subscriber: subscriber,
		Message:    message,
		Data:       data,
		SentAt:     time.Now(),
	}
	n.nextID++

	n.records = append(n.records, record)
	if len(n.records) > n.maxRecords {
		n.records = n.records[len(n.records)-n.maxRecords:]
	}

	n.logger.Info().
		Str("eventType", eventType).
		Str("subscriber", subscriber).
		Str("message", message).
		Msg("Mock notification sent")
	return nil
}
