package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const tenantColumns = `id, slug, name, status, subscription_tier, settings, created_at, updated_at`

// PostgresStorage stores tenants in the tenants table of the shared namespace.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Insert(ctx context.Context, t *tenant.Tenant) error {
	settings, err := encodeSettings(t.Settings)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)`,
		t.ID, t.Slug, t.Name, string(t.Status), t.SubscriptionTier, settings, t.CreatedAt, t.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *PostgresStorage) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

func (s *PostgresStorage) List(ctx context.Context, filter Filter) ([]*tenant.Tenant, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.SubscriptionTier != "" {
		args = append(args, filter.SubscriptionTier)
		where = append(where, fmt.Sprintf("subscription_tier = $%d", len(args)))
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at, slug LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []*tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

func (s *PostgresStorage) Update(ctx context.Context, t *tenant.Tenant, prevStatus tenant.Status) error {
	settings, err := encodeSettings(t.Settings)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, status = $3, subscription_tier = $4, settings = $5::jsonb, updated_at = $6
		WHERE id = $1 AND status = $7`,
		t.ID, t.Name, string(t.Status), t.SubscriptionTier, settings, t.UpdatedAt, string(prevStatus),
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t        tenant.Tenant
		status   string
		settings []byte
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &status, &t.SubscriptionTier, &settings, &t.CreatedAt, &t.UpdatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	t.Status = tenant.Status(status)
	if len(settings) > 0 && string(settings) != "null" {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, errors.Join(ErrInvalidInput, err)
		}
	}
	return &t, nil
}

func encodeSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", errors.Join(ErrInvalidInput, err)
	}
	return string(raw), nil
}
