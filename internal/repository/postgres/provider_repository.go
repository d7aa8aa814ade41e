package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aras-services/native-gateway/internal/domain"
)

// ProviderRepository persists provider descriptors. Config is stored as a
// JSONB column and unmarshaled into the plain map the domain type expects.
type ProviderRepository struct {
	db *pgxpool.Pool
}

func NewProviderRepository(db *pgxpool.Pool) domain.ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) Create(ctx context.Context, d *domain.ProviderDescriptor) error {
	configJSON, err := json.Marshal(d.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO provider_descriptors (id, name, kind, subtype, config, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, d.ID, d.Name, d.Kind, d.Subtype, configJSON, d.Enabled).
		Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *ProviderRepository) Update(ctx context.Context, d *domain.ProviderDescriptor) error {
	configJSON, err := json.Marshal(d.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE provider_descriptors
		SET name = $2, subtype = $3, config = $4, enabled = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query, d.ID, d.Name, d.Subtype, configJSON, d.Enabled).Scan(&d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrProviderNotFound
		}
		return err
	}
	return nil
}

func (r *ProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM provider_descriptors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProviderNotFound
	}
	return nil
}

func (r *ProviderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ProviderDescriptor, error) {
	query := `
		SELECT id, name, kind, subtype, config, enabled, created_at, updated_at
		FROM provider_descriptors WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*domain.ProviderDescriptor, error) {
	query := `
		SELECT id, name, kind, subtype, config, enabled, created_at, updated_at
		FROM provider_descriptors WHERE name = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

func (r *ProviderRepository) List(ctx context.Context) ([]*domain.ProviderDescriptor, error) {
	query := `
		SELECT id, name, kind, subtype, config, enabled, created_at, updated_at
		FROM provider_descriptors ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProviderDescriptor
	for rows.Next() {
		d, err := scanProviderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ProviderRepository) scanOne(row pgx.Row) (*domain.ProviderDescriptor, error) {
	d, err := scanProviderRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrProviderNotFound
		}
		return nil, fmt.Errorf("get provider descriptor: %w", err)
	}
	return d, nil
}

func scanProviderRow(row rowScanner) (*domain.ProviderDescriptor, error) {
	var d domain.ProviderDescriptor
	var configJSON []byte
	if err := row.Scan(&d.ID, &d.Name, &d.Kind, &d.Subtype, &configJSON, &d.Enabled, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &d.Config); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
