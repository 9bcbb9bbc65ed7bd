package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	mapset "github.com/deckarep/golang-set/v2"

	"ai-job-scraper-go/internal/models"
)

const (
	PageSize    = 1000
	MaxPrefetch = 50000
	BatchSize   = 100
)

// SyncStats summarizes one sync.
type SyncStats struct {
	Existing int
	Prepared int
	Inserted int
	Skipped  int
	Failed   int
}

type tableEnsurer interface {
	EnsureTable(ctx context.Context) error
}

// Sink appends records to a region table without overwriting rows that
// are already there.
type Sink struct {
	store  Store
	logger *log.Logger
}

func NewSink(store Store, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sink{store: store, logger: logger}
}

// Sync inserts the records whose (title, company) pair is not yet in the
// region's table.
func (s *Sink) Sync(ctx context.Context, region models.RegionInfo, records []models.JobRecord) (SyncStats, error) {
	var stats SyncStats
	table := s.store.Table(region.TableName())

	if e, ok := table.(tableEnsurer); ok {
		if err := e.EnsureTable(ctx); err != nil {
			return stats, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
	}

	existing, err := s.prefetch(ctx, table)
	if err != nil {
		return stats, err
	}
	stats.Existing = existing.Cardinality()
	s.logger.Printf("[%s] %d existing keys in %s", region.Code, stats.Existing, table.Name())

	var rows []models.Row
	for _, rec := range records {
		key, ok := rec.CrossKey()
		if !ok || existing.Contains(key) {
			stats.Skipped++
			continue
		}
		existing.Add(key)
		rows = append(rows, rec.Row())
	}
	stats.Prepared = len(rows)

	for start := 0; start < len(rows); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := min(start+BatchSize, len(rows))
		batch := rows[start:end]
		err := table.InsertRows(ctx, batch)
		if err == nil {
			stats.Inserted += len(batch)
			continue
		}
		s.logger.Printf("[%s] batch insert failed, retrying row by row: %v", region.Code, err)
		s.insertEach(ctx, table, batch, &stats)
	}

	s.logger.Printf("[%s] sync done: %d prepared, %d inserted, %d skipped, %d failed",
		region.Code, stats.Prepared, stats.Inserted, stats.Skipped, stats.Failed)
	return stats, nil
}

func (s *Sink) prefetch(ctx context.Context, table Table) (mapset.Set[string], error) {
	keys := mapset.NewThreadUnsafeSet[string]()
	for offset := 0; offset < MaxPrefetch; offset += PageSize {
		page, err := table.FetchKeys(ctx, offset, PageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		for _, kp := range page {
			if key, ok := models.CrossKey(kp.Title, kp.Company); ok {
				keys.Add(key)
			}
		}
		if len(page) < PageSize {
			break
		}
	}
	return keys, nil
}

func (s *Sink) insertEach(ctx context.Context, table Table, batch []models.Row, stats *SyncStats) {
	for _, row := range batch {
		err := table.InsertRows(ctx, []models.Row{row})
		switch {
		case err == nil:
			stats.Inserted++
		case IsDuplicateError(err):
			stats.Skipped++
		default:
			stats.Failed++
			s.logger.Printf("insert %q at %q failed: %v", row.JobTitle, row.CompanyName, err)
		}
	}
}
