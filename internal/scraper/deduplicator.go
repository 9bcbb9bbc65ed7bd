package scraper

import (
	"ai-job-scraper-go/internal/checkpoint"
	"ai-job-scraper-go/internal/models"
)

// Deduplicator tracks intra-platform keys already accepted in a region. It
// shares its sets with the checkpoint state so they persist with it.
type Deduplicator struct {
	state *checkpoint.State
}

// NewDeduplicator wraps the seen-key sets of state.
func NewDeduplicator(state *checkpoint.State) *Deduplicator {
	return &Deduplicator{state: state}
}

// IsDuplicate checks if a record was already accepted on its platform.
func (d *Deduplicator) IsDuplicate(rec models.JobRecord) bool {
	return d.state.Seen(rec.SourcePlatform).Contains(rec.IntraKey())
}

// MarkSeen records rec's key on its platform.
func (d *Deduplicator) MarkSeen(rec models.JobRecord) {
	d.state.Seen(rec.SourcePlatform).Add(rec.IntraKey())
}

// GetSeenCount returns the number of unique records seen across platforms.
func (d *Deduplicator) GetSeenCount() int {
	return d.state.SeenCount()
}
