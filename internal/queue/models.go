package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status admits no further transitions.
// A failed item may still re-enter pending through the bounded retry path,
// which is an explicit operation rather than a transition of the failed state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority orders pending items for scheduling. Urgent > high > normal > low.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var allPriorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

var priorityRanks = map[Priority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// AllPriorities returns the known priorities from lowest to highest.
func AllPriorities() []Priority {
	cp := make([]Priority, len(allPriorities))
	copy(cp, allPriorities)
	return cp
}

// ParsePriority converts a string into a known Priority.
func ParsePriority(value string) (Priority, bool) {
	normalized := Priority(strings.ToLower(strings.TrimSpace(value)))
	_, ok := priorityRanks[normalized]
	return normalized, ok
}

// Rank returns the numeric ordering of a priority; higher runs first.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// JobKind identifies the download operation an item requests.
type JobKind string

const (
	KindVideo          JobKind = "video"
	KindAudio          JobKind = "audio"
	KindImages         JobKind = "images"
	KindStory          JobKind = "story"
	KindPlaylist       JobKind = "playlist"
	KindVideoCut       JobKind = "video_cut"
	KindGenericQuality JobKind = "generic_quality"
)

var allKinds = []JobKind{
	KindVideo,
	KindAudio,
	KindImages,
	KindStory,
	KindPlaylist,
	KindVideoCut,
	KindGenericQuality,
}

var kindSet = func() map[JobKind]struct{} {
	set := make(map[JobKind]struct{}, len(allKinds))
	for _, kind := range allKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// AllKinds returns the ordered list of known job kinds.
func AllKinds() []JobKind {
	cp := make([]JobKind, len(allKinds))
	copy(cp, allKinds)
	return cp
}

// ParseJobKind converts a string into a known JobKind.
func ParseJobKind(value string) (JobKind, bool) {
	normalized := JobKind(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := kindSet[normalized]
	return normalized, ok
}

// Item is one requested download job and its lifecycle state.
//
// The Manager exclusively owns all Items; read operations hand out clones,
// and mutation happens only through Manager operations.
type Item struct {
	ID            string
	RequesterID   int64
	RequesterName string
	SourceURL     string
	Kind          JobKind
	Priority      Priority
	Status        Status
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ErrorMessage  string
	Progress      float64
	RetryCount    int
	MaxRetries    int
	Params        Params
}

// CanRetry reports whether the bounded retry path may return this item to pending.
func (i *Item) CanRetry() bool {
	return i.Status == StatusFailed && i.RetryCount < i.MaxRetries
}

// ProcessingTime returns the completed-minus-started duration when both
// timestamps are set.
func (i *Item) ProcessingTime() (time.Duration, bool) {
	if i.StartedAt == nil || i.CompletedAt == nil {
		return 0, false
	}
	return i.CompletedAt.Sub(*i.StartedAt), true
}

// Age returns the elapsed time since the item was created.
func (i *Item) Age(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// Clone returns a deep copy safe to hand to callers outside the Manager lock.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	if i.StartedAt != nil {
		started := *i.StartedAt
		cp.StartedAt = &started
	}
	if i.CompletedAt != nil {
		completed := *i.CompletedAt
		cp.CompletedAt = &completed
	}
	return &cp
}
