package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fetchd/internal/config"
	"fetchd/internal/logging"
)

// Manager owns the ordered job collection. All mutation happens under its
// lock and is followed by a full snapshot write to the store before the
// operation returns; read operations hand out clones so callers never share
// memory with the live items.
type Manager struct {
	mu        sync.RWMutex
	items     []*Item
	active    *Item
	store     *Store
	cfg       *config.Config
	logger    *slog.Logger
	listeners []Listener
	now       func() time.Time

	backupStop chan struct{}
	backupDone chan struct{}
}

// NewManager loads the persisted snapshot and normalizes interrupted work:
// any item recovered in the downloading state returns to pending so a crash
// never strands a job.
func NewManager(cfg *config.Config, store *Store, logger *slog.Logger) (*Manager, error) {
	log := logging.WithComponent(logger, "queue")

	items, err := store.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load queue snapshot: %w", err)
	}

	recovered := 0
	for _, item := range items {
		if item.Status == StatusDownloading {
			item.Status = StatusPending
			item.StartedAt = nil
			item.Progress = 0
			recovered++
		}
	}

	m := &Manager{
		items:  items,
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}

	if recovered > 0 {
		log.Info("recovered interrupted downloads", "count", recovered)
		if err := m.store.Save(context.Background(), m.items); err != nil {
			log.Warn("persist recovered queue", "error", err)
		}
	}
	log.Info("queue loaded", "items", len(items))

	return m, nil
}

// StartBackups launches the periodic backup loop. Stop it through Close.
func (m *Manager) StartBackups(ctx context.Context) {
	interval := time.Duration(m.cfg.Queue.BackupIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}

	m.backupStop = make(chan struct{})
	m.backupDone = make(chan struct{})

	go func() {
		defer close(m.backupDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.backupStop:
				return
			case <-ticker.C:
				if err := m.store.Backup(ctx); err != nil {
					m.logger.Warn("queue backup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the backup loop, takes a final backup, and closes the store.
func (m *Manager) Close() error {
	if m.backupStop != nil {
		close(m.backupStop)
		<-m.backupDone
		m.backupStop = nil
	}
	if err := m.store.Backup(context.Background()); err != nil {
		m.logger.Warn("final queue backup failed", "error", err)
	}
	return m.store.Close()
}

// AddListener registers a lifecycle listener. Listeners are notified in
// registration order after the triggering mutation has been persisted.
func (m *Manager) AddListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// RemoveListener unregisters a previously added listener.
func (m *Manager) RemoveListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == listener {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Request describes a new download job to enqueue.
type Request struct {
	RequesterID   int64
	RequesterName string
	SourceURL     string
	Kind          JobKind
	Priority      Priority
	Params        Params
	MaxRetries    int
}

// Add validates a request, builds the item, and inserts it by priority:
// before the first pending item of strictly lower priority, so equal
// priorities stay first-in first-out. Returns ErrQueueFull at capacity.
func (m *Manager) Add(ctx context.Context, req Request) (*Item, error) {
	url := strings.TrimSpace(req.SourceURL)
	if url == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if _, ok := kindSet[req.Kind]; !ok {
		return nil, fmt.Errorf("unknown job kind %q", req.Kind)
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if _, ok := priorityRanks[priority]; !ok {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}

	params := req.Params
	if params == nil {
		defaults, err := DefaultParams(req.Kind)
		if err != nil {
			return nil, err
		}
		params = defaults
	} else if params.Kind() != req.Kind {
		return nil, fmt.Errorf("params kind %q does not match job kind %q", params.Kind(), req.Kind)
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = m.cfg.Queue.DefaultMaxRetries
	}

	item := &Item{
		ID:            uuid.New().String(),
		RequesterID:   req.RequesterID,
		RequesterName: strings.TrimSpace(req.RequesterName),
		SourceURL:     url,
		Kind:          req.Kind,
		Priority:      priority,
		Status:        StatusPending,
		CreatedAt:     m.now().UTC(),
		MaxRetries:    maxRetries,
		Params:        params,
	}

	m.mu.Lock()
	if len(m.items) >= m.cfg.Queue.MaxItems {
		m.mu.Unlock()
		return nil, ErrQueueFull
	}
	m.insertByPriority(item)
	clone, listeners := m.persistLocked(item)
	m.mu.Unlock()

	m.logger.Info("item queued",
		"item", item.ID,
		"requester", item.RequesterID,
		"kind", item.Kind,
		"priority", item.Priority,
	)
	m.notify(ctx, listeners, eventAdded, clone)
	return clone.Clone(), nil
}

// insertByPriority places the item before the first pending item with a
// strictly lower priority rank. Terminal and downloading items are skipped
// so they keep their historical positions.
func (m *Manager) insertByPriority(item *Item) {
	at := len(m.items)
	for i, existing := range m.items {
		if existing.Status != StatusPending {
			continue
		}
		if existing.Priority.Rank() < item.Priority.Rank() {
			at = i
			break
		}
	}
	m.items = append(m.items, nil)
	copy(m.items[at+1:], m.items[at:])
	m.items[at] = item
}

// NextItem hands the highest-positioned pending item to the caller and marks
// it downloading. It returns nil when another item is already active or when
// nothing is pending; only one item downloads at a time.
func (m *Manager) NextItem(ctx context.Context) (*Item, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, nil
	}

	var next *Item
	for _, item := range m.items {
		if item.Status == StatusPending {
			next = item
			break
		}
	}
	if next == nil {
		m.mu.Unlock()
		return nil, nil
	}

	started := m.now().UTC()
	next.Status = StatusDownloading
	next.StartedAt = &started
	next.Progress = 0
	m.active = next

	clone, listeners := m.persistLocked(next)
	m.mu.Unlock()

	m.logger.Info("item started", "item", next.ID, "kind", next.Kind)
	m.notify(ctx, listeners, eventStarted, clone)
	return clone.Clone(), nil
}

// UpdateOption adjusts an item alongside a status change.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	errorDetail string
	hasError    bool
	progress    float64
	hasProgress bool
}

// WithErrorDetail records the failure reason on the item.
func WithErrorDetail(detail string) UpdateOption {
	return func(o *updateOptions) {
		o.errorDetail = detail
		o.hasError = true
	}
}

// WithProgress records completion progress, clamped to the 0-100 range.
func WithProgress(progress float64) UpdateOption {
	return func(o *updateOptions) {
		o.progress = progress
		o.hasProgress = true
	}
}

// UpdateStatus transitions an item to the target status. Only the active item
// may hold or enter the downloading state. Completion and failure stamp
// CompletedAt and release the active slot; moving away from failed clears the
// recorded error.
func (m *Manager) UpdateStatus(ctx context.Context, id string, target Status, opts ...UpdateOption) error {
	if _, ok := statusSet[target]; !ok {
		return fmt.Errorf("unknown status %q", target)
	}

	var options updateOptions
	for _, opt := range opts {
		opt(&options)
	}

	m.mu.Lock()
	item := m.findLocked(id)
	if item == nil {
		m.mu.Unlock()
		return fmt.Errorf("item %s not found", id)
	}
	if target == StatusDownloading && m.active != item {
		m.mu.Unlock()
		return fmt.Errorf("item %s is not the active download", id)
	}

	now := m.now().UTC()
	previous := item.Status
	item.Status = target

	switch target {
	case StatusDownloading:
		if options.hasProgress {
			item.Progress = clampProgress(options.progress)
		}
	case StatusCompleted:
		item.Progress = 100
		item.CompletedAt = &now
	case StatusFailed:
		item.CompletedAt = &now
		if options.hasError {
			item.ErrorMessage = options.errorDetail
		}
	case StatusCancelled:
		item.CompletedAt = &now
	case StatusPending:
		item.StartedAt = nil
		item.CompletedAt = nil
		item.Progress = 0
	}
	if target != StatusFailed {
		item.ErrorMessage = ""
	}
	if m.active == item && target != StatusDownloading {
		m.active = nil
	}

	clone, listeners := m.persistLocked(item)
	m.mu.Unlock()

	if previous != target {
		m.logger.Info("item status changed",
			"item", id,
			"from", previous,
			"to", target,
		)
	}
	switch target {
	case StatusCompleted:
		m.notify(ctx, listeners, eventCompleted, clone)
	case StatusFailed:
		m.notify(ctx, listeners, eventFailed, clone)
	}
	return nil
}

// Retry returns a failed item to pending and counts the attempt. The item is
// removed and reinserted by priority so it re-competes with newly arrived
// work at the tail of its priority class. Refuses items that are not failed
// or that have exhausted their retry budget.
func (m *Manager) Retry(ctx context.Context, id string) error {
	m.mu.Lock()
	item := m.findLocked(id)
	if item == nil {
		m.mu.Unlock()
		return fmt.Errorf("item %s not found", id)
	}
	if item.Status != StatusFailed {
		m.mu.Unlock()
		return fmt.Errorf("item %s is %s, only failed items can be retried", id, item.Status)
	}
	if item.RetryCount >= item.MaxRetries {
		m.mu.Unlock()
		return fmt.Errorf("item %s has exhausted its %d retries", id, item.MaxRetries)
	}

	item.RetryCount++
	item.Status = StatusPending
	item.StartedAt = nil
	item.CompletedAt = nil
	item.ErrorMessage = ""
	item.Progress = 0

	m.removeLocked(item)
	m.insertByPriority(item)

	m.persistLocked(nil)
	retryCount := item.RetryCount
	maxRetries := item.MaxRetries
	m.mu.Unlock()

	m.logger.Info("item requeued for retry", "item", id, "attempt", retryCount, "max", maxRetries)
	return nil
}

// Remove deletes an item from the queue entirely. Removing the active item
// clears the active marker; a worker still executing it will find its later
// status report rejected as not-found, which is an expected race.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	item := m.findLocked(id)
	if item == nil {
		m.mu.Unlock()
		return fmt.Errorf("item %s not found", id)
	}

	if m.active == item {
		m.active = nil
	}
	m.removeLocked(item)
	m.persistLocked(nil)
	m.mu.Unlock()

	m.logger.Info("item removed", "item", id)
	return nil
}

// ClearRequester removes all of one requester's items, whatever their
// status. Returns the number removed.
func (m *Manager) ClearRequester(ctx context.Context, requesterID int64) (int, error) {
	m.mu.Lock()
	kept := m.items[:0]
	removed := 0
	for _, item := range m.items {
		if item.RequesterID == requesterID {
			if m.active == item {
				m.active = nil
			}
			removed++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	if removed == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	m.persistLocked(nil)
	m.mu.Unlock()

	m.logger.Info("requester queue cleared", "requester", requesterID, "removed", removed)
	return removed, nil
}

// ClearCompleted removes completed items, optionally scoped to one requester
// when requesterID is non-zero. Returns the number removed.
func (m *Manager) ClearCompleted(ctx context.Context, requesterID int64) (int, error) {
	m.mu.Lock()
	kept := m.items[:0]
	removed := 0
	for _, item := range m.items {
		if item.Status == StatusCompleted && (requesterID == 0 || item.RequesterID == requesterID) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	if removed == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	m.persistLocked(nil)
	m.mu.Unlock()

	m.logger.Info("completed items cleared", "requester", requesterID, "removed", removed)
	return removed, nil
}

// CleanupOldItems removes terminal items older than the configured age.
// Pending and downloading items are never cleaned up regardless of age.
func (m *Manager) CleanupOldItems(ctx context.Context) (int, error) {
	maxAge := time.Duration(m.cfg.Queue.CleanupAgeHours) * time.Hour
	now := m.now().UTC()

	m.mu.Lock()
	kept := m.items[:0]
	removed := 0
	for _, item := range m.items {
		if item.Status.Terminal() && item.Age(now) > maxAge {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	if removed == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	m.persistLocked(nil)
	m.mu.Unlock()

	m.logger.Info("old items cleaned up", "removed", removed)
	return removed, nil
}

// IsProcessing reports whether a download is currently in flight.
func (m *Manager) IsProcessing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

// ActiveItem returns a clone of the item currently downloading, or nil.
func (m *Manager) ActiveItem() *Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.Clone()
}

// Position returns the 1-based rank of a pending item among pending items,
// or -1 when the item is absent or not pending.
func (m *Manager) Position(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rank := 0
	for _, item := range m.items {
		if item.Status != StatusPending {
			continue
		}
		rank++
		if item.ID == id {
			return rank
		}
	}
	return -1
}

// Find returns a clone of the item with the given id, or nil.
func (m *Manager) Find(id string) *Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(id).Clone()
}

// Items returns clones of every item in queue order.
func (m *Manager) Items() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.items)
}

// UserItems returns clones of one requester's items in queue order.
func (m *Manager) UserItems(requesterID int64) []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Item
	for _, item := range m.items {
		if item.RequesterID == requesterID {
			matched = append(matched, item.Clone())
		}
	}
	return matched
}

// Statistics computes aggregate counters over the whole queue.
func (m *Manager) Statistics() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Compute(m.items)
}

// RequesterStatistics computes aggregate counters over one requester's items.
func (m *Manager) RequesterStatistics(requesterID int64) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Item
	for _, item := range m.items {
		if item.RequesterID == requesterID {
			matched = append(matched, item)
		}
	}
	return Compute(matched)
}

func (m *Manager) findLocked(id string) *Item {
	for _, item := range m.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (m *Manager) removeLocked(target *Item) {
	for i, item := range m.items {
		if item == target {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

// persistLocked prunes excess terminal items, writes the snapshot, and
// returns a clone of the subject plus the listener list for notification
// outside the lock. Callers must hold the write lock. A failed write is
// logged and the in-memory mutation stands; the next successful save
// rewrites the full snapshot.
func (m *Manager) persistLocked(subject *Item) (*Item, []Listener) {
	m.pruneTerminalLocked()

	if err := m.store.Save(context.Background(), m.items); err != nil {
		m.logger.Warn("persist queue snapshot", "error", err)
	}

	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	return subject.Clone(), listeners
}

// pruneTerminalLocked drops terminal items past the configured ceiling,
// earliest finish first. An item that never recorded a completion time
// falls back to its creation time.
func (m *Manager) pruneTerminalLocked() {
	limit := m.cfg.Queue.MaxTerminalItems
	if limit <= 0 {
		return
	}

	var terminal []*Item
	for _, item := range m.items {
		if item.Status.Terminal() {
			terminal = append(terminal, item)
		}
	}
	if len(terminal) <= limit {
		return
	}

	sort.SliceStable(terminal, func(i, j int) bool {
		return finishedAt(terminal[i]).Before(finishedAt(terminal[j]))
	})
	drop := make(map[*Item]struct{}, len(terminal)-limit)
	for _, item := range terminal[:len(terminal)-limit] {
		drop[item] = struct{}{}
	}

	kept := m.items[:0]
	for _, item := range m.items {
		if _, pruned := drop[item]; pruned {
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
}

func finishedAt(item *Item) time.Time {
	if item.CompletedAt != nil {
		return *item.CompletedAt
	}
	return item.CreatedAt
}

func (m *Manager) notify(ctx context.Context, listeners []Listener, event eventKind, item *Item) {
	if item == nil {
		return
	}
	for _, listener := range listeners {
		if err := dispatch(ctx, listener, event, item.Clone()); err != nil {
			m.logger.Warn("queue listener failed",
				"event", string(event),
				"item", item.ID,
				"error", err,
			)
		}
	}
}

func cloneAll(items []*Item) []*Item {
	clones := make([]*Item, len(items))
	for i, item := range items {
		clones[i] = item.Clone()
	}
	return clones
}

func clampProgress(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
