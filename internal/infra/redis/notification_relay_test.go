package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNotificationRelayDeliversToLocalHub(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	hub := app.NewHub(4, nil)
	sub := hub.Attach(9)
	relay := NewNotificationRelay(newClient(mr), "notifications", hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, ready) }()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("relay stopped: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not subscribe")
	}

	ev := app.Event{Kind: app.EventCreated, Notification: domain.Notification{ID: 5, RecipientID: 9, Text: "new quiz"}}
	if err := relay.Publish(ctx, 9, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.Kind != app.EventCreated || got.Notification.ID != 5 || got.Notification.Text != "new quiz" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
