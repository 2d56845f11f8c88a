// Package clientdata caches decision-service responses on disk so a restart
// can still show the last known good ticks and scenario time.
// Entries are JSON blobs with an expiration timestamp.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cache tables.
const (
	TableScenarioTicks = "scenario_ticks"
	TableScenarioTime  = "scenario_time"
)

// AllTables lists every cache table for cleanup.
var AllTables = []string{
	TableScenarioTicks,
	TableScenarioTime,
}

var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for decision-service responses.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable keeps table names out of reach of callers' input.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store upserts data with expiration = now + ttl.
func (r *Repository) Store(table, scenarioID string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (scenario_id, data, expires_at) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, scenarioID, string(jsonData), r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns data only while it has not expired. Missing or expired
// entries return nil, nil.
func (r *Repository) GetIfFresh(table, scenarioID string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE scenario_id = ? AND expires_at > ?", table)
	return r.scan(table, r.db.QueryRow(query, scenarioID, r.now().Unix()))
}

// Get returns data regardless of expiration, for use when the service is
// unreachable. Missing entries return nil, nil.
func (r *Repository) Get(table, scenarioID string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE scenario_id = ?", table)
	return r.scan(table, r.db.QueryRow(query, scenarioID))
}

func (r *Repository) scan(table string, row *sql.Row) (json.RawMessage, error) {
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, scenarioID string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE scenario_id = ?", table)
	if _, err := r.db.Exec(query, scenarioID); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now, except those of the
// scenarios in keep.
func (r *Repository) DeleteExpired(table string, keep ...string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	args := []interface{}{r.now().Unix()}
	if len(keep) > 0 {
		query += " AND scenario_id NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, id := range keep {
			args = append(args, id)
		}
	}
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from every table.
func (r *Repository) DeleteAllExpired(keep ...string) (map[string]int64, error) {
	results := make(map[string]int64)
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table, keep...)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}
	return results, nil
}
