package postgres

import (
	"context"
	"fmt"

	"github.com/candelahq/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResourceRepository struct {
	pool *pgxpool.Pool
}

func NewResourceRepository(pool *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

func (r *ResourceRepository) CreateResource(ctx context.Context, res domain.Resource) error {
	const stmt = `
INSERT INTO resources (id, tenant_id, name, kind, capacity_model, daily_capacity_units, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, stmt,
		res.ID,
		res.TenantID,
		res.Name,
		res.Kind,
		res.CapacityModel,
		res.DailyCapacityUnits,
		res.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, kind, capacity_model, daily_capacity_units, status
FROM resources
WHERE id = $1 AND tenant_id = $2`

	var res domain.Resource
	err := r.pool.QueryRow(ctx, query, resourceID, tenantID).Scan(
		&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.CapacityModel, &res.DailyCapacityUnits, &res.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r *ResourceRepository) ListResources(ctx context.Context, tenantID string, kind domain.ResourceKind) ([]domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, kind, capacity_model, daily_capacity_units, status
FROM resources
WHERE tenant_id = $1 AND ($2 = '' OR kind = $2)
ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.CapacityModel, &res.DailyCapacityUnits, &res.Status); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate resources: %w", rows.Err())
	}
	return resources, nil
}

func (r *ResourceRepository) UpdateResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) error {
	const stmt = `UPDATE resources SET status = $3 WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, stmt, resourceID, tenantID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update resource status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}
