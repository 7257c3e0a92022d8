package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/provider"
)

// crmTables lists every table the service owns, children first.
var crmTables = []string{
	"exhausted_dispatches",
	"messages",
	"tickets",
	"contacts",
	"funnel_steps",
	"funnels",
	"channel_accounts",
	"users",
	"companies",
}

func truncateTables(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	for _, table := range crmTables {
		ctxExec, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := db.ExecContext(ctxExec, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", pq.QuoteIdentifier(table)))
		cancel()
		if err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// countRows returns the number of rows matching query.
func countRows(ctx context.Context, dsn, query string, args ...interface{}) (int, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	return n, nil
}

// queryString scans a single text column.
func queryString(ctx context.Context, dsn, query string, args ...interface{}) (string, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var out string
	if err := db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}
	return out, nil
}

// recordingSender captures provider sends and fails while failing is set.
type recordingSender struct {
	mu      sync.Mutex
	sent    []provider.SendRequest
	calls   int
	failing bool
}

func (s *recordingSender) Send(_ context.Context, req provider.SendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failing {
		return fmt.Errorf("provider unavailable")
	}
	s.sent = append(s.sent, req)
	return nil
}

func (s *recordingSender) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *recordingSender) snapshot() ([]provider.SendRequest, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.SendRequest(nil), s.sent...), s.calls
}
