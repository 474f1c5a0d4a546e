package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/access-portal/internal/domain"
)

// RequestRepository defines persistence access for access requests.
type RequestRepository interface {
	// Upsert inserts a pending request, replacing the requester's existing
	// pending request if one exists.
	Upsert(ctx context.Context, req *domain.AccessRequest) error
	Update(ctx context.Context, req *domain.AccessRequest) error
	GetByID(ctx context.Context, id string) (*domain.AccessRequest, error)
	GetLatestByIdentifier(ctx context.Context, identifier string) (*domain.AccessRequest, error)
	ListPending(ctx context.Context) ([]*domain.AccessRequest, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository returns a Postgres-backed implementation.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `
        id, identifier, role_class, requested_models, requested_prompts_per_day,
        requested_tokens_per_response, justification, status, granted_models,
        granted_prompts_per_day, granted_tokens_per_response, approved_by,
        approved_at, created_at, updated_at`

func (r *requestRepository) Upsert(ctx context.Context, req *domain.AccessRequest) error {
	const query = `
        INSERT INTO access_requests
            (id, identifier, role_class, requested_models, requested_prompts_per_day,
             requested_tokens_per_response, justification, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (identifier) WHERE status = 'PENDING'
        DO UPDATE SET
            role_class = EXCLUDED.role_class,
            requested_models = EXCLUDED.requested_models,
            requested_prompts_per_day = EXCLUDED.requested_prompts_per_day,
            requested_tokens_per_response = EXCLUDED.requested_tokens_per_response,
            justification = EXCLUDED.justification,
            created_at = NOW(),
            updated_at = NOW()
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		req.ID,
		req.Identifier,
		req.RoleClass,
		req.RequestedModels,
		req.RequestedPromptsPerDay,
		req.RequestedTokensPerResponse,
		req.Justification,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, req *domain.AccessRequest) error {
	const query = `
        UPDATE access_requests
        SET status=$1, granted_models=$2, granted_prompts_per_day=$3,
            granted_tokens_per_response=$4, approved_by=$5, approved_at=$6, updated_at=NOW()
        WHERE id=$7`

	var models []string
	var promptsPerDay, tokensPerResponse *int
	if req.Allocation != nil {
		models = req.Allocation.Models
		promptsPerDay = &req.Allocation.PromptsPerDay
		tokensPerResponse = &req.Allocation.TokensPerResponse
	}

	cmd, err := r.pool.Exec(ctx, query,
		req.Status,
		models,
		promptsPerDay,
		tokensPerResponse,
		req.ApprovedBy,
		req.ApprovedAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.AccessRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM access_requests WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *requestRepository) GetLatestByIdentifier(ctx context.Context, identifier string) (*domain.AccessRequest, error) {
	const query = `SELECT ` + requestColumns + `
        FROM access_requests WHERE identifier=$1
        ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

func (r *requestRepository) ListPending(ctx context.Context) ([]*domain.AccessRequest, error) {
	const query = `SELECT ` + requestColumns + `
        FROM access_requests WHERE status='PENDING'
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.AccessRequest
	for rows.Next() {
		req, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *requestRepository) scanOne(row rowScanner) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	var grantedModels []string
	var grantedPromptsPerDay, grantedTokensPerResponse *int
	var approvedAt *time.Time

	if err := row.Scan(
		&req.ID,
		&req.Identifier,
		&req.RoleClass,
		&req.RequestedModels,
		&req.RequestedPromptsPerDay,
		&req.RequestedTokensPerResponse,
		&req.Justification,
		&req.Status,
		&grantedModels,
		&grantedPromptsPerDay,
		&grantedTokensPerResponse,
		&req.ApprovedBy,
		&approvedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}

	req.ApprovedAt = approvedAt
	if grantedPromptsPerDay != nil && grantedTokensPerResponse != nil {
		req.Allocation = &domain.Allocation{
			Models:            grantedModels,
			PromptsPerDay:     *grantedPromptsPerDay,
			TokensPerResponse: *grantedTokensPerResponse,
		}
	}
	return &req, nil
}
