// Package merge combines one region's per-platform records, dropping
// postings another platform already supplied.
package merge

import (
	"io"
	"log"

	mapset "github.com/deckarep/golang-set/v2"

	"ai-job-scraper-go/internal/models"
)

// DefaultPriority lets the generalist aggregator win conflicts.
var DefaultPriority = []models.Platform{models.PlatformAdzuna, models.PlatformLinkedIn}

// Stats reports what a merge kept and dropped.
type Stats struct {
	KeptByPlatform  map[models.Platform]int
	CrossDuplicates int
	UndefinedKeys   int
}

// Merger picks whole records by platform priority; fields are never
// combined across platforms.
type Merger struct {
	priority []models.Platform
	logger   *log.Logger
}

// NewMerger creates a merger. Platforms earlier in priority win; an empty
// priority uses DefaultPriority.
func NewMerger(priority []models.Platform, logger *log.Logger) *Merger {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Merger{priority: priority, logger: logger}
}

// order lists platforms by priority, then any others present in canonical
// order.
func (m *Merger) order(byPlatform map[models.Platform][]models.JobRecord) []models.Platform {
	seen := mapset.NewThreadUnsafeSet[models.Platform]()
	var out []models.Platform
	for _, p := range append(append([]models.Platform{}, m.priority...), models.Platforms...) {
		if seen.Contains(p) {
			continue
		}
		seen.Add(p)
		if _, ok := byPlatform[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Merge returns the winner's records in order followed by each losing
// platform's records whose cross-platform key is not already present.
// Records without a cross-platform key always pass.
func (m *Merger) Merge(byPlatform map[models.Platform][]models.JobRecord) ([]models.JobRecord, Stats) {
	stats := Stats{KeptByPlatform: make(map[models.Platform]int)}
	keys := mapset.NewThreadUnsafeSet[string]()
	var merged []models.JobRecord

	for i, p := range m.order(byPlatform) {
		var added []string
		for _, rec := range byPlatform[p] {
			key, ok := rec.CrossKey()
			if !ok {
				stats.UndefinedKeys++
			} else if i > 0 && keys.Contains(key) {
				stats.CrossDuplicates++
				continue
			}
			merged = append(merged, rec)
			stats.KeptByPlatform[p]++
			if ok {
				added = append(added, key)
			}
		}
		// Keys become visible only after the platform is done, so a
		// platform never drops its own records.
		keys.Append(added...)
	}

	if stats.CrossDuplicates > 0 {
		m.logger.Printf("Cross-platform merge dropped %d duplicates, kept %d records", stats.CrossDuplicates, len(merged))
	}
	return merged, stats
}
