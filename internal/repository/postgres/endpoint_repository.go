package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aras-services/native-gateway/internal/domain"
)

// EndpointRepository persists endpoint route records, independent of
// whether a handler image is currently loaded for that id.
type EndpointRepository struct {
	db *pgxpool.Pool
}

func NewEndpointRepository(db *pgxpool.Pool) domain.EndpointRepository {
	return &EndpointRepository{db: db}
}

func (r *EndpointRepository) Create(ctx context.Context, e *domain.Endpoint) error {
	query := `
		INSERT INTO endpoints (id, domain, method, path_pattern)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, e.ID, e.RouteKey.Domain, e.RouteKey.Method, e.RouteKey.PathPattern).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *EndpointRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM endpoints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	return nil
}

func (r *EndpointRepository) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	query := `
		SELECT id, domain, method, path_pattern, created_at, updated_at
		FROM endpoints WHERE id = $1
	`
	e, err := scanEndpointRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRouteNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EndpointRepository) List(ctx context.Context) ([]*domain.Endpoint, error) {
	query := `
		SELECT id, domain, method, path_pattern, created_at, updated_at
		FROM endpoints ORDER BY domain, path_pattern
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Endpoint
	for rows.Next() {
		e, err := scanEndpointRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEndpointRow(row rowScanner) (*domain.Endpoint, error) {
	var e domain.Endpoint
	if err := row.Scan(&e.ID, &e.RouteKey.Domain, &e.RouteKey.Method, &e.RouteKey.PathPattern, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
