//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_ProfileCreatedEvent(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan ProfileCreated, 1)
	err = client.Subscribe(SubjectAll, func(subject string, data []byte) {
		if subject != SubjectProfileCreated {
			return
		}
		var ev ProfileCreated
		if err := json.Unmarshal(data, &ev); err == nil {
			received <- ev
		}
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	client.Emit(SubjectProfileCreated, ProfileCreated{ProfileID: "ann_v1", PersonName: "Ann", VersionNumber: 1})

	select {
	case ev := <-received:
		if ev.ProfileID != "ann_v1" || ev.VersionNumber != 1 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
