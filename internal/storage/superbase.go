package storage

import (
	"context"
	"fmt"
	"os"

	supabase "github.com/nedpals/supabase-go"

	"ai-job-scraper-go/internal/models"
)

// SupabaseStore uses the nedpals/supabase-go SDK to reach region tables
// through PostgREST.
type SupabaseStore struct {
	client *supabase.Client
}

var _ Store = (*SupabaseStore)(nil)

// NewSupabaseStore creates a SupabaseStore. It reads SUPABASE_URL and SUPABASE_KEY
// from environment variables if empty values are provided.
func NewSupabaseStore(supabaseURL, supabaseKey string) (*SupabaseStore, error) {
	if supabaseURL == "" {
		supabaseURL = os.Getenv("SUPABASE_URL")
	}
	if supabaseKey == "" {
		supabaseKey = os.Getenv("SUPABASE_KEY")
	}
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided via args or SUPABASE_URL / SUPABASE_KEY env vars")
	}

	// CreateClient returns *supabase.Client (no error)
	client := supabase.CreateClient(supabaseURL, supabaseKey)
	return &SupabaseStore{client: client}, nil
}

// Table returns the named region table.
func (s *SupabaseStore) Table(name string) Table {
	return &SupabaseTable{client: s.client, name: name}
}

type SupabaseTable struct {
	client *supabase.Client
	name   string
}

func (t *SupabaseTable) Name() string {
	return t.name
}

// FetchKeys reads one page of key pairs using a PostgREST range header.
// Pages are ordered by the unique key so they neither overlap nor skip rows.
func (t *SupabaseTable) FetchKeys(ctx context.Context, offset, limit int) ([]KeyPair, error) {
	var rows []KeyPair
	err := t.client.DB.From(t.name).
		Select("job_title", "company_name").
		OrderBy(keyOrder, "asc").
		LimitWithOffset(limit, offset).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("select keys from %s: %w", t.name, err)
	}
	return rows, nil
}

func (t *SupabaseTable) InsertRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	var results []models.Row
	if err := t.client.DB.From(t.name).Insert(rows).ExecuteWithContext(ctx, &results); err != nil {
		return fmt.Errorf("insert into %s: %w", t.name, err)
	}
	return nil
}
