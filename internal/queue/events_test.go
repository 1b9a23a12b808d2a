package queue_test

import (
	"context"
	"errors"
	"testing"

	"fetchd/internal/queue"
	"fetchd/internal/testsupport"
)

type recordingListener struct {
	events []string
	fail   bool
}

func (l *recordingListener) record(event string, item *queue.Item) error {
	l.events = append(l.events, event+":"+item.ID)
	if l.fail {
		return errors.New("listener down")
	}
	return nil
}

func (l *recordingListener) ItemAdded(_ context.Context, item *queue.Item) error {
	return l.record("added", item)
}

func (l *recordingListener) ItemStarted(_ context.Context, item *queue.Item) error {
	return l.record("started", item)
}

func (l *recordingListener) ItemCompleted(_ context.Context, item *queue.Item) error {
	return l.record("completed", item)
}

func (l *recordingListener) ItemFailed(_ context.Context, item *queue.Item) error {
	return l.record("failed", item)
}

func TestListenerReceivesLifecycleEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager := testsupport.NewManager(t, cfg)
	ctx := context.Background()

	listener := &recordingListener{}
	manager.AddListener(listener)

	item := addItem(t, manager, 1, "https://example.com/a", queue.PriorityNormal)
	if _, err := manager.NextItem(ctx); err != nil {
		t.Fatalf("next item: %v", err)
	}
	if err := manager.UpdateStatus(ctx, item.ID, queue.StatusFailed, queue.WithErrorDetail("boom")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := manager.Retry(ctx, item.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := manager.NextItem(ctx); err != nil {
		t.Fatalf("next item after retry: %v", err)
	}
	if err := manager.UpdateStatus(ctx, item.ID, queue.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	want := []string{
		"added:" + item.ID,
		"started:" + item.ID,
		"failed:" + item.ID,
		"started:" + item.ID,
		"completed:" + item.ID,
	}
	if len(listener.events) != len(want) {
		t.Fatalf("event count: got %v, want %v", listener.events, want)
	}
	for i, event := range want {
		if listener.events[i] != event {
			t.Fatalf("event %d: got %s, want %s", i, listener.events[i], event)
		}
	}
}

func TestListenerErrorDoesNotBlockOthers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager := testsupport.NewManager(t, cfg)

	failing := &recordingListener{fail: true}
	healthy := &recordingListener{}
	manager.AddListener(failing)
	manager.AddListener(healthy)

	item := addItem(t, manager, 1, "https://example.com/a", queue.PriorityNormal)

	if len(failing.events) != 1 || len(healthy.events) != 1 {
		t.Fatalf("expected both listeners notified, got %d and %d", len(failing.events), len(healthy.events))
	}
	if healthy.events[0] != "added:"+item.ID {
		t.Fatalf("unexpected event %s", healthy.events[0])
	}
}

func TestRemoveListener(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager := testsupport.NewManager(t, cfg)

	listener := &recordingListener{}
	manager.AddListener(listener)
	manager.RemoveListener(listener)

	addItem(t, manager, 1, "https://example.com/a", queue.PriorityNormal)
	if len(listener.events) != 0 {
		t.Fatalf("expected no events after removal, got %v", listener.events)
	}
}
