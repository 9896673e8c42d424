package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"visado/internal/logic"
	"visado/internal/rules/models"
	id "visado/pkg/domain"
	"visado/pkg/platform/sentinel"
	"visado/pkg/platform/tx"
)

// PostgresStore persists the rule catalog in PostgreSQL. Writes issued inside
// an authoring transaction pick up the *sql.Tx from context so close-then-open
// publishing commits atomically.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rule store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) exec(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) CreateVisaType(ctx context.Context, vt models.VisaType) error {
	query := `
		INSERT INTO visa_types (id, jurisdiction, code, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.exec(ctx).ExecContext(ctx, query,
		vt.ID.String(), vt.Jurisdiction, vt.Code, vt.Name, vt.IsActive, vt.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create visa type: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVisaType(ctx context.Context, visaTypeID id.VisaTypeID) (*models.VisaType, error) {
	query := `
		SELECT id, jurisdiction, code, name, is_active, created_at
		FROM visa_types WHERE id = $1
	`
	var (
		vt    models.VisaType
		rawID string
	)
	err := s.exec(ctx).QueryRowContext(ctx, query, visaTypeID.String()).Scan(
		&rawID, &vt.Jurisdiction, &vt.Code, &vt.Name, &vt.IsActive, &vt.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get visa type: %w", err)
	}
	parsed, err := id.ParseVisaTypeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("get visa type: %w", err)
	}
	vt.ID = parsed
	return &vt, nil
}

func (s *PostgresStore) ListVisaTypes(ctx context.Context, activeOnly bool) ([]models.VisaType, error) {
	query := `
		SELECT id, jurisdiction, code, name, is_active, created_at
		FROM visa_types
		WHERE ($1 = false OR is_active = true)
		ORDER BY jurisdiction, code
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list visa types: %w", err)
	}
	defer rows.Close()

	var out []models.VisaType
	for rows.Next() {
		var (
			vt    models.VisaType
			rawID string
		)
		if err := rows.Scan(&rawID, &vt.Jurisdiction, &vt.Code, &vt.Name, &vt.IsActive, &vt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan visa type: %w", err)
		}
		parsed, err := id.ParseVisaTypeID(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan visa type: %w", err)
		}
		vt.ID = parsed
		out = append(out, vt)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetPublishedVersions(ctx context.Context, visaTypeID id.VisaTypeID) ([]models.RuleVersion, error) {
	query := `
		SELECT id, visa_type_id, effective_from, effective_to, is_published, created_at
		FROM rule_versions
		WHERE visa_type_id = $1 AND is_published = true
		ORDER BY effective_from
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, visaTypeID.String())
	if err != nil {
		return nil, fmt.Errorf("get published versions: %w", err)
	}
	defer rows.Close()

	var out []models.RuleVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindOpenVersion(ctx context.Context, visaTypeID id.VisaTypeID) (*models.RuleVersion, error) {
	query := `
		SELECT id, visa_type_id, effective_from, effective_to, is_published, created_at
		FROM rule_versions
		WHERE visa_type_id = $1 AND is_published = true AND effective_to IS NULL
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, visaTypeID.String())
	if err != nil {
		return nil, fmt.Errorf("find open version: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := scanVersion(rows)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) CloseVersion(ctx context.Context, versionID id.RuleVersionID, effectiveTo time.Time) error {
	query := `
		UPDATE rule_versions SET effective_to = $2
		WHERE id = $1 AND effective_to IS NULL
	`
	res, err := s.exec(ctx).ExecContext(ctx, query, versionID.String(), effectiveTo)
	if err != nil {
		return fmt.Errorf("close version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close version: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) InsertVersion(ctx context.Context, v models.RuleVersion) error {
	query := `
		INSERT INTO rule_versions (id, visa_type_id, effective_from, effective_to, is_published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var effectiveTo any
	if v.EffectiveTo != nil {
		effectiveTo = *v.EffectiveTo
	}
	_, err := s.exec(ctx).ExecContext(ctx, query,
		v.ID.String(), v.VisaTypeID.String(), v.EffectiveFrom, effectiveTo, v.IsPublished, v.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertRequirements(ctx context.Context, reqs []models.Requirement) error {
	query := `
		INSERT INTO requirements (id, rule_version_id, code, rule_type, description, condition, is_mandatory, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, r := range reqs {
		condition, err := json.Marshal(r.Condition.Interface())
		if err != nil {
			return fmt.Errorf("marshal condition for %s: %w", r.Code, err)
		}
		_, err = s.exec(ctx).ExecContext(ctx, query,
			r.ID.String(), r.RuleVersionID.String(), r.Code, r.RuleType, r.Description, condition, r.IsMandatory, i)
		if err != nil {
			return fmt.Errorf("insert requirement %s: %w", r.Code, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetRequirements(ctx context.Context, versionID id.RuleVersionID) ([]models.Requirement, error) {
	query := `
		SELECT id, rule_version_id, code, rule_type, description, condition, is_mandatory
		FROM requirements
		WHERE rule_version_id = $1
		ORDER BY position
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, versionID.String())
	if err != nil {
		return nil, fmt.Errorf("get requirements: %w", err)
	}
	defer rows.Close()

	var out []models.Requirement
	for rows.Next() {
		var (
			r            models.Requirement
			rawID        string
			rawVersionID string
			rawCondition []byte
		)
		if err := rows.Scan(&rawID, &rawVersionID, &r.Code, &r.RuleType, &r.Description, &rawCondition, &r.IsMandatory); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}

		reqID, err := id.ParseRequirementID(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		verID, err := id.ParseRuleVersionID(rawVersionID)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}

		var generic any
		if err := json.Unmarshal(rawCondition, &generic); err != nil {
			return nil, fmt.Errorf("decode condition for %s: %w", r.Code, err)
		}
		condition, err := logic.FromAny(generic)
		if err != nil {
			return nil, fmt.Errorf("decode condition for %s: %w", r.Code, err)
		}

		r.ID = reqID
		r.RuleVersionID = verID
		r.Condition = condition
		out = append(out, r)
	}
	return out, rows.Err()
}

// WithinTx runs fn inside a SQL transaction threaded through context.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, fn)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (models.RuleVersion, error) {
	var (
		v             models.RuleVersion
		rawID         string
		rawVisaTypeID string
		effectiveTo   sql.NullTime
	)
	if err := row.Scan(&rawID, &rawVisaTypeID, &v.EffectiveFrom, &effectiveTo, &v.IsPublished, &v.CreatedAt); err != nil {
		return models.RuleVersion{}, fmt.Errorf("scan version: %w", err)
	}

	versionID, err := id.ParseRuleVersionID(rawID)
	if err != nil {
		return models.RuleVersion{}, fmt.Errorf("scan version: %w", err)
	}
	visaTypeID, err := id.ParseVisaTypeID(rawVisaTypeID)
	if err != nil {
		return models.RuleVersion{}, fmt.Errorf("scan version: %w", err)
	}

	v.ID = versionID
	v.VisaTypeID = visaTypeID
	if effectiveTo.Valid {
		t := effectiveTo.Time
		v.EffectiveTo = &t
	}
	return v, nil
}
