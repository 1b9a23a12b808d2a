package queue

import "time"

// Stats aggregates counters over a set of items. Success rate covers only
// items that reached completed or failed; a queue with neither reports zero.
type Stats struct {
	Total         int
	ByStatus      map[Status]int
	ByPriority    map[Priority]int
	ByKind        map[JobKind]int
	AvgProcessing time.Duration
	MinProcessing time.Duration
	MaxProcessing time.Duration
	SuccessRate   float64
}

// Compute builds Stats over the given items.
func Compute(items []*Item) Stats {
	stats := Stats{
		Total:      len(items),
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
		ByKind:     make(map[JobKind]int),
	}

	var totalProcessing time.Duration
	processed := 0

	for _, item := range items {
		stats.ByStatus[item.Status]++
		stats.ByPriority[item.Priority]++
		stats.ByKind[item.Kind]++

		if duration, ok := item.ProcessingTime(); ok {
			totalProcessing += duration
			if processed == 0 || duration < stats.MinProcessing {
				stats.MinProcessing = duration
			}
			if duration > stats.MaxProcessing {
				stats.MaxProcessing = duration
			}
			processed++
		}
	}

	if processed > 0 {
		stats.AvgProcessing = totalProcessing / time.Duration(processed)
	}

	completed := stats.ByStatus[StatusCompleted]
	failed := stats.ByStatus[StatusFailed]
	if completed+failed > 0 {
		stats.SuccessRate = float64(completed) / float64(completed+failed)
	}

	return stats
}
