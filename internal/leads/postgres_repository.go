package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores leads in the Supabase Postgres "leads" table. The
// connection uses the service-role credential, so row-level policies do not apply.
type PostgresRepository struct {
	pool pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool pgxQuerier) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const insertLeadSQL = `
	INSERT INTO leads (
		session_id, contact_name, email, phone, business_name, interests,
		pain_points, source, priority, qualification_score, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id::text, created_at
`

const selectLeadColumns = `
	SELECT id::text, session_id, contact_name, email, phone, business_name, interests,
		pain_points, source, priority, qualification_score, status, created_at
	FROM leads
`

// Create inserts exactly one row and fills in the generated id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	interests := lead.Interests
	if interests == nil {
		interests = []string{}
	}
	out := *lead
	out.Interests = interests
	if err := r.pool.QueryRow(ctx, insertLeadSQL,
		lead.SessionID,
		lead.ContactName,
		nullIfEmpty(lead.Email),
		nullIfEmpty(lead.Phone),
		nullIfEmpty(lead.BusinessName),
		interests,
		nullIfEmpty(lead.PainPoints),
		lead.Source,
		lead.Priority,
		lead.QualificationScore,
		lead.Status,
	).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return &out, nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.pool.QueryRow(ctx, selectLeadColumns+` WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// ListRecent returns up to limit leads, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Lead, error) {
	rows, err := r.pool.Query(ctx, selectLeadColumns+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var email, phone, businessName, painPoints *string
	if err := row.Scan(
		&lead.ID,
		&lead.SessionID,
		&lead.ContactName,
		&email,
		&phone,
		&businessName,
		&lead.Interests,
		&painPoints,
		&lead.Source,
		&lead.Priority,
		&lead.QualificationScore,
		&lead.Status,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	lead.Email = deref(email)
	lead.Phone = deref(phone)
	lead.BusinessName = deref(businessName)
	lead.PainPoints = deref(painPoints)
	if lead.Interests == nil {
		lead.Interests = []string{}
	}
	return &lead, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
