package app_test

import (
	"context"
	"testing"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestHubDropsOldestWhenFull(t *testing.T) {
	hub := app.NewHub(2, nil)
	sub := hub.Attach(7)

	for i := int64(1); i <= 3; i++ {
		_ = hub.Publish(context.Background(), 7, app.Event{Kind: app.EventCreated, Notification: domain.Notification{ID: i}})
	}

	first := <-sub.Events()
	second := <-sub.Events()
	if first.Notification.ID != 2 || second.Notification.ID != 3 {
		t.Fatalf("expected the two newest events, got %d and %d", first.Notification.ID, second.Notification.ID)
	}
}

func TestHubDetach(t *testing.T) {
	hub := app.NewHub(4, nil)
	a := hub.Attach(7)
	b := hub.Attach(7)
	if hub.Online(7) != 2 {
		t.Fatalf("expected 2 connections, got %d", hub.Online(7))
	}

	hub.Detach(a)
	hub.Detach(a)
	if hub.Online(7) != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.Online(7))
	}
	if _, ok := <-a.Events(); ok {
		t.Fatalf("detached channel should be closed")
	}

	_ = hub.Publish(context.Background(), 7, app.Event{Kind: app.EventUpdated})
	if ev := <-b.Events(); ev.Kind != app.EventUpdated {
		t.Fatalf("remaining connection should still receive, got %+v", ev)
	}

	hub.Close()
	if hub.Online(7) != 0 {
		t.Fatalf("expected no connections after close")
	}
}

func TestHubPublishWithoutConnections(t *testing.T) {
	hub := app.NewHub(1, nil)
	if err := hub.Publish(context.Background(), 99, app.Event{Kind: app.EventCreated}); err != nil {
		t.Fatalf("publish to offline user: %v", err)
	}
}
