package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/access-portal/internal/domain"
)

// AccountRepository defines persistence access for portal accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (identifier, role_class, password_hash, is_admin, is_new_user, is_approved)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		account.Identifier,
		account.RoleClass,
		account.PasswordHash,
		account.IsAdmin,
		account.IsNewUser,
		account.IsApproved,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts
        SET role_class=$1, password_hash=$2, is_admin=$3, is_new_user=$4, is_approved=$5,
            granted_models=$6, prompts_per_day=$7, tokens_per_response=$8, updated_at=NOW()
        WHERE identifier=$9`

	var models []string
	var promptsPerDay, tokensPerResponse *int
	if account.Allocation != nil {
		models = account.Allocation.Models
		promptsPerDay = &account.Allocation.PromptsPerDay
		tokensPerResponse = &account.Allocation.TokensPerResponse
	}

	cmd, err := r.pool.Exec(ctx, query,
		account.RoleClass,
		account.PasswordHash,
		account.IsAdmin,
		account.IsNewUser,
		account.IsApproved,
		models,
		promptsPerDay,
		tokensPerResponse,
		account.Identifier,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	const query = `
        SELECT id, identifier, role_class, password_hash, is_admin, is_new_user, is_approved,
               granted_models, prompts_per_day, tokens_per_response, created_at, updated_at
        FROM accounts WHERE identifier=$1`

	var account domain.Account
	var models []string
	var promptsPerDay, tokensPerResponse *int
	if err := r.pool.QueryRow(ctx, query, identifier).Scan(
		&account.ID,
		&account.Identifier,
		&account.RoleClass,
		&account.PasswordHash,
		&account.IsAdmin,
		&account.IsNewUser,
		&account.IsApproved,
		&models,
		&promptsPerDay,
		&tokensPerResponse,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if promptsPerDay != nil && tokensPerResponse != nil {
		account.Allocation = &domain.Allocation{
			Models:            models,
			PromptsPerDay:     *promptsPerDay,
			TokensPerResponse: *tokensPerResponse,
		}
	}
	return &account, nil
}
