// Package logs fans deployment log entries out to live stream subscribers.
package logs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/models"
)

// Subscriber receives log entries for one deployment, optionally filtered by
// source. The channel is buffered; slow consumers lose entries rather than
// block publishers.
type Subscriber struct {
	ID           string
	DeploymentID string
	Source       models.LogSource // empty means all sources
	Ch           chan *models.LogEntry
	CreatedAt    time.Time
}

// Broker manages log subscriptions and publishing.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates a log broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for a deployment's log stream.
func (b *Broker) Subscribe(ctx context.Context, deploymentID string, source models.LogSource) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:           uuid.New().String(),
		DeploymentID: deploymentID,
		Source:       source,
		Ch:           make(chan *models.LogEntry, 100),
		CreatedAt:    time.Now(),
	}

	b.subscribers[sub.ID] = sub
	b.logger.Debug("log subscriber added",
		"subscriber_id", sub.ID,
		"deployment_id", deploymentID,
	)

	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("log subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish sends a log entry to every matching subscriber. Entries are
// dropped for subscribers whose channel is full.
func (b *Broker) Publish(entry *models.LogEntry) {
	if entry == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !matches(sub, entry) {
			continue
		}
		select {
		case sub.Ch <- entry:
		default:
			b.logger.Warn("subscriber channel full, dropping log entry",
				"subscriber_id", sub.ID,
				"deployment_id", entry.DeploymentID,
			)
		}
	}
}

// PublishBatch sends multiple log entries to all matching subscribers.
func (b *Broker) PublishBatch(entries []*models.LogEntry) {
	for _, entry := range entries {
		b.Publish(entry)
	}
}

func matches(sub *Subscriber, entry *models.LogEntry) bool {
	if sub.DeploymentID != "" && sub.DeploymentID != entry.DeploymentID {
		return false
	}
	if sub.Source != "" && sub.Source != entry.Source {
		return false
	}
	return true
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
