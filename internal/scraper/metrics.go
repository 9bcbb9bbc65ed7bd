package scraper

import (
	"log"
	"time"

	"ai-job-scraper-go/internal/models"
)

// RegionStats tracks one region's grid walk.
type RegionStats struct {
	TriplesTotal      int
	RequestsAttempted int
	RequestsSucceeded int
	RequestsFailed    int
	EmptyResults      int
	Retries           int

	RawPostings int
	Malformed   int
	Duplicates  int
	TooOld      int
	Irrelevant  int
	Unique      int
	SeenKeys    int

	Resumed      bool
	ResumedFrom  int
	CapReached   bool
	Duration     time.Duration
	SourceTotals map[models.Platform]SourceMetrics
}

// SourceMetrics tracks performance per platform.
type SourceMetrics struct {
	Requests     int
	Failures     int
	Postings     int
	Accepted     int
	ResponseTime time.Duration
	LastScraped  time.Time
}

func newRegionStats() RegionStats {
	return RegionStats{SourceTotals: make(map[models.Platform]SourceMetrics)}
}

func (s *RegionStats) recordRequest(p models.Platform, postings int, elapsed time.Duration, err error, at time.Time) {
	m := s.SourceTotals[p]
	m.Requests++
	m.ResponseTime += elapsed
	m.LastScraped = at
	s.RequestsAttempted++
	if err != nil {
		m.Failures++
		s.RequestsFailed++
	} else {
		m.Postings += postings
		s.RequestsSucceeded++
		s.RawPostings += postings
		if postings == 0 {
			s.EmptyResults++
		}
	}
	s.SourceTotals[p] = m
}

func (s *RegionStats) recordAccepted(p models.Platform) {
	m := s.SourceTotals[p]
	m.Accepted++
	s.SourceTotals[p] = m
	s.Unique++
}

// Log writes a one-line summary plus one line per platform.
func (s RegionStats) Log(logger *log.Logger, region models.Region) {
	logger.Printf("%s: %d/%d requests succeeded (%d failed, %d empty, %d retries); %d raw, %d unique (%d keys), %d duplicates, %d malformed, %d too old, %d irrelevant in %v",
		region, s.RequestsSucceeded, s.RequestsAttempted, s.RequestsFailed, s.EmptyResults, s.Retries,
		s.RawPostings, s.Unique, s.SeenKeys, s.Duplicates, s.Malformed, s.TooOld, s.Irrelevant, s.Duration.Round(time.Millisecond))
	for _, p := range models.Platforms {
		m, ok := s.SourceTotals[p]
		if !ok {
			continue
		}
		logger.Printf("  %s: %d requests, %d failures, %d postings, %d accepted",
			p.DisplayName(), m.Requests, m.Failures, m.Postings, m.Accepted)
	}
}
