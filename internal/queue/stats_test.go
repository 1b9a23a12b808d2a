package queue_test

import (
	"testing"
	"time"

	"fetchd/internal/queue"
)

func statItem(status queue.Status, priority queue.Priority, kind queue.JobKind, processing time.Duration) *queue.Item {
	item := &queue.Item{
		ID:        string(status) + "-" + string(kind),
		Status:    status,
		Priority:  priority,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if processing > 0 {
		started := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		completed := started.Add(processing)
		item.StartedAt = &started
		item.CompletedAt = &completed
	}
	return item
}

func TestComputeStats(t *testing.T) {
	items := []*queue.Item{
		statItem(queue.StatusCompleted, queue.PriorityHigh, queue.KindVideo, 30*time.Second),
		statItem(queue.StatusCompleted, queue.PriorityNormal, queue.KindAudio, 90*time.Second),
		statItem(queue.StatusFailed, queue.PriorityNormal, queue.KindVideo, 0),
		statItem(queue.StatusPending, queue.PriorityLow, queue.KindImages, 0),
	}

	stats := queue.Compute(items)

	if stats.Total != 4 {
		t.Fatalf("total: got %d, want 4", stats.Total)
	}
	if stats.ByStatus[queue.StatusCompleted] != 2 || stats.ByStatus[queue.StatusFailed] != 1 {
		t.Fatalf("status counts wrong: %+v", stats.ByStatus)
	}
	if stats.ByPriority[queue.PriorityNormal] != 2 {
		t.Fatalf("priority counts wrong: %+v", stats.ByPriority)
	}
	if stats.ByKind[queue.KindVideo] != 2 {
		t.Fatalf("kind counts wrong: %+v", stats.ByKind)
	}
	if stats.MinProcessing != 30*time.Second || stats.MaxProcessing != 90*time.Second {
		t.Fatalf("processing bounds wrong: min=%v max=%v", stats.MinProcessing, stats.MaxProcessing)
	}
	if stats.AvgProcessing != 60*time.Second {
		t.Fatalf("avg processing: got %v, want 60s", stats.AvgProcessing)
	}

	// 2 completed out of 3 finished.
	want := 2.0 / 3.0
	if diff := stats.SuccessRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("success rate: got %v, want %v", stats.SuccessRate, want)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := queue.Compute(nil)
	if stats.Total != 0 {
		t.Fatalf("total: got %d, want 0", stats.Total)
	}
	if stats.SuccessRate != 0 {
		t.Fatalf("success rate on empty queue: got %v, want 0", stats.SuccessRate)
	}
	if stats.AvgProcessing != 0 {
		t.Fatalf("avg processing on empty queue: got %v, want 0", stats.AvgProcessing)
	}
}
