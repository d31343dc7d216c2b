package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the minimal query surface the store needs. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the Postgres-backed tenant registry living in the central
// database. Feature flags, branding, legal texts, and limits are stored as
// JSONB documents so adding a toggle does not require a migration.
type PGStore struct {
	db DB
}

// NewPGStore returns a Store backed by the central database.
func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

const tenantColumns = `id, subdomain, database_id, name, active, features, branding, legal, limits, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID, &t.Subdomain, &t.DatabaseID, &t.Name, &t.Active,
		&t.Features, &t.Branding, &t.Legal, &t.Limits,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	if subdomain == "" {
		return nil, ErrInvalidIdentifier
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain)
	return scanTenant(row)
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// List returns all tenants ordered by id so that cross-tenant iteration is
// deterministic.
func (s *PGStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO tenants (id, subdomain, database_id, name, active, features, branding, legal, limits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Subdomain, t.DatabaseID, t.Name, t.Active,
		t.Features, t.Branding, t.Legal, t.Limits,
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// Update replaces the mutable attributes of a tenant. The routing keys are
// immutable: the stored record is read first and a changed subdomain or
// database identifier is rejected before anything is written.
func (s *PGStore) Update(ctx context.Context, t *Tenant) error {
	current, err := s.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.Subdomain != t.Subdomain || current.DatabaseID != t.DatabaseID {
		return ErrImmutableField
	}

	t.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE tenants
		SET name = $2, active = $3, features = $4, branding = $5, legal = $6, limits = $7, updated_at = $8
		WHERE id = $1`,
		t.ID, t.Name, t.Active, t.Features, t.Branding, t.Legal, t.Limits, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
