package main

import (
	"testing"
	"time"

	"fetchd/internal/queue"
)

func TestDisplayName(t *testing.T) {
	if got := displayName("alice smith", 1); got != "Alice Smith" {
		t.Fatalf("displayName: got %q", got)
	}
	if got := displayName("", 42); got != "#42" {
		t.Fatalf("displayName fallback: got %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID: got %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID passthrough: got %q", got)
	}
}

func TestFormatProgress(t *testing.T) {
	downloading := &queue.Item{Status: queue.StatusDownloading, Progress: 42.5}
	if got := formatProgress(downloading); got != "42.5%" {
		t.Fatalf("downloading progress: got %q", got)
	}
	completed := &queue.Item{Status: queue.StatusCompleted}
	if got := formatProgress(completed); got != "100%" {
		t.Fatalf("completed progress: got %q", got)
	}
	pending := &queue.Item{Status: queue.StatusPending}
	if got := formatProgress(pending); got != "-" {
		t.Fatalf("pending progress: got %q", got)
	}
}

func TestTruncateURL(t *testing.T) {
	short := "https://example.com/x"
	if got := truncateURL(short); got != short {
		t.Fatalf("short url modified: %q", got)
	}
	long := "https://example.com/" + string(make([]byte, 100))
	if got := truncateURL(long); len(got) != 60 {
		t.Fatalf("expected truncation to 60 chars, got %d", len(got))
	}
}

func TestFindByPrefix(t *testing.T) {
	items := []*queue.Item{
		{ID: "aaa111", CreatedAt: time.Now()},
		{ID: "aab222", CreatedAt: time.Now()},
		{ID: "bbb333", CreatedAt: time.Now()},
	}

	if got := findByPrefix(items, "bbb"); got == nil || got.ID != "bbb333" {
		t.Fatalf("unique prefix: got %+v", got)
	}
	if got := findByPrefix(items, "aaa111"); got == nil || got.ID != "aaa111" {
		t.Fatalf("exact match: got %+v", got)
	}
	if got := findByPrefix(items, "aa"); got != nil {
		t.Fatalf("ambiguous prefix should return nil, got %s", got.ID)
	}
	if got := findByPrefix(items, "zzz"); got != nil {
		t.Fatalf("missing prefix should return nil, got %s", got.ID)
	}
	if got := findByPrefix(items, ""); got != nil {
		t.Fatalf("empty prefix should return nil, got %s", got.ID)
	}
}
