package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltmarket/backend/internal/models"
)

type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// APIKeyWithAgent is returned by FindByKeyHash (api_key joined with agent).
type APIKeyWithAgent struct {
	APIKey models.APIKey
	Agent  models.Agent
}

func (r *APIKeyRepo) Create(ctx context.Context, k *models.APIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, agent_id, key_hash, key_prefix, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, k.ID, k.AgentID, k.KeyHash, k.KeyPrefix, k.IsActive)
	return err
}

// FindByKeyHash returns the api_key and joined agent for the given key hash.
// Inactive keys do not match.
func (r *APIKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*APIKeyWithAgent, error) {
	var out APIKeyWithAgent
	err := r.pool.QueryRow(ctx, `
		SELECT k.id, k.agent_id, k.key_hash, k.key_prefix, k.is_active,
		       a.id, a.name, a.description, a.created_at, a.updated_at
		FROM api_keys k
		INNER JOIN agents a ON a.id = k.agent_id
		WHERE k.key_hash = $1 AND k.is_active = TRUE
	`, keyHash).Scan(
		&out.APIKey.ID, &out.APIKey.AgentID, &out.APIKey.KeyHash, &out.APIKey.KeyPrefix, &out.APIKey.IsActive,
		&out.Agent.ID, &out.Agent.Name, &out.Agent.Description, &out.Agent.CreatedAt, &out.Agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
