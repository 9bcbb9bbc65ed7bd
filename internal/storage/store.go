package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"ai-job-scraper-go/internal/models"
)

// ErrRemoteUnavailable is returned when the remote table cannot be read.
var ErrRemoteUnavailable = errors.New("remote table unavailable")

// keyOrder sorts key pages by the unique (job_title, company_name) pair.
const keyOrder = "job_title,company_name"

// KeyPair is the (job_title, company_name) pair of one remote row.
type KeyPair struct {
	Title   string `json:"job_title"`
	Company string `json:"company_name"`
}

// Table is one region's remote job table. It must enforce a unique
// constraint on (job_title, company_name).
type Table interface {
	Name() string
	FetchKeys(ctx context.Context, offset, limit int) ([]KeyPair, error)
	InsertRows(ctx context.Context, rows []models.Row) error
}

// Store opens region tables on one backend.
type Store interface {
	Table(name string) Table
}

// IsDuplicateError reports whether err is a unique-constraint violation.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "23505")
}
