package logs

import (
	"context"
	"testing"
	"time"

	"github.com/launchdeck/launchdeck/internal/models"
)

func entry(deploymentID string, source models.LogSource, message string) *models.LogEntry {
	return &models.LogEntry{
		DeploymentID: deploymentID,
		Timestamp:    time.Now(),
		Level:        models.LogLevelInfo,
		Source:       source,
		Message:      message,
	}
}

func TestBrokerDeliversToMatchingSubscriber(t *testing.T) {
	broker := NewBroker(nil)
	sub := broker.Subscribe(context.Background(), "dep-1", "")
	defer broker.Unsubscribe(sub)

	broker.Publish(entry("dep-1", models.LogSourceBuild, "building"))
	broker.Publish(entry("dep-2", models.LogSourceBuild, "other deployment"))

	select {
	case got := <-sub.Ch:
		if got.Message != "building" {
			t.Errorf("got message %q, want %q", got.Message, "building")
		}
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}

	select {
	case got := <-sub.Ch:
		t.Fatalf("unexpected entry for other deployment: %q", got.Message)
	default:
	}
}

func TestBrokerSourceFilter(t *testing.T) {
	broker := NewBroker(nil)
	sub := broker.Subscribe(context.Background(), "dep-1", models.LogSourceDeploy)
	defer broker.Unsubscribe(sub)

	broker.PublishBatch([]*models.LogEntry{
		entry("dep-1", models.LogSourceBuild, "compiling"),
		entry("dep-1", models.LogSourceDeploy, "uploading"),
	})

	select {
	case got := <-sub.Ch:
		if got.Source != models.LogSourceDeploy {
			t.Errorf("got source %s, want deploy", got.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	broker := NewBroker(nil)
	sub := broker.Subscribe(context.Background(), "dep-1", "")
	defer broker.Unsubscribe(sub)

	// Fill well past the channel buffer without reading.
	for i := 0; i < 200; i++ {
		broker.Publish(entry("dep-1", models.LogSourceBuild, "line"))
	}

	if got := len(sub.Ch); got != cap(sub.Ch) {
		t.Errorf("buffered entries = %d, want full buffer %d", got, cap(sub.Ch))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	broker := NewBroker(nil)
	sub := broker.Subscribe(context.Background(), "dep-1", "")

	broker.Unsubscribe(sub)
	if broker.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", broker.SubscriberCount())
	}

	if _, open := <-sub.Ch; open {
		t.Error("channel still open after unsubscribe")
	}

	// A second unsubscribe is a no-op.
	broker.Unsubscribe(sub)
	broker.Unsubscribe(nil)
}
