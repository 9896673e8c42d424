package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"visado/internal/facts/models"
	"visado/internal/logic"
	id "visado/pkg/domain"
	"visado/pkg/platform/sentinel"
)

// PostgresStore persists cases and facts in PostgreSQL. Fact values are
// stored as JSONB; the facts table is append-only and never updated.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed fact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) OpenCase(ctx context.Context, c models.Case) error {
	query := `INSERT INTO cases (id, opened_at) VALUES ($1, $2)`
	_, err := s.db.ExecContext(ctx, query, c.ID.String(), c.OpenedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("open case: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	query := `SELECT id, opened_at FROM cases WHERE id = $1`
	var (
		c     models.Case
		rawID string
	)
	err := s.db.QueryRowContext(ctx, query, caseID.String()).Scan(&rawID, &c.OpenedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	parsed, err := id.ParseCaseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	c.ID = parsed
	return &c, nil
}

func (s *PostgresStore) Append(ctx context.Context, facts []models.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		if _, err := s.GetCase(ctx, f.CaseID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO facts (case_id, key, value, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, f := range facts {
		payload, err := json.Marshal(f.Value.Interface())
		if err != nil {
			return fmt.Errorf("marshal fact %s: %w", f.Key, err)
		}
		if _, err := s.db.ExecContext(ctx, query,
			f.CaseID.String(), f.Key, payload, string(f.Source), f.CreatedAt); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("append fact %s: %w", f.Key, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]models.Fact, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	query := `
		SELECT key, value, source, created_at
		FROM facts
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []models.Fact
	for rows.Next() {
		f, err := scanFact(rows, caseID)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// LatestByCase collapses a case's history into the current fact set; for
// each key the newest row wins. Unknown cases yield sentinel.ErrNotFound.
func (s *PostgresStore) LatestByCase(ctx context.Context, caseID id.CaseID) (map[string]logic.Value, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT ON (key) key, value, source, created_at
		FROM facts
		WHERE case_id = $1
		ORDER BY key, created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("latest facts: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]logic.Value)
	for rows.Next() {
		f, err := scanFact(rows, caseID)
		if err != nil {
			return nil, err
		}
		latest[f.Key] = f.Value
	}
	return latest, rows.Err()
}

func scanFact(rows *sql.Rows, caseID id.CaseID) (models.Fact, error) {
	var (
		f       models.Fact
		payload []byte
		source  string
	)
	if err := rows.Scan(&f.Key, &payload, &source, &f.CreatedAt); err != nil {
		return models.Fact{}, fmt.Errorf("scan fact: %w", err)
	}
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Fact{}, fmt.Errorf("unmarshal fact %s: %w", f.Key, err)
	}
	value, err := logic.FromAny(raw)
	if err != nil {
		return models.Fact{}, fmt.Errorf("rebuild fact %s: %w", f.Key, err)
	}
	f.CaseID = caseID
	f.Value = value
	f.Source = models.Source(source)
	return f, nil
}
