package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltmarket/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, creator_id, title, description, category, reward_points, evidence_type, dynamic_code, status, timeout_hours, closed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.CreatorID, &t.Title, &t.Description, &t.Category, &t.RewardPoints, &t.EvidenceType, &t.DynamicCode, &t.Status, &t.TimeoutHours, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, creator_id, title, description, category, reward_points, evidence_type, dynamic_code, status, timeout_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, t.ID, t.CreatorID, t.Title, t.Description, t.Category, t.RewardPoints, t.EvidenceType, t.DynamicCode, t.Status, t.TimeoutHours).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row. Call within a transaction; concurrent
// lifecycle operations on the same task serialize on this lock.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

func (r *TaskRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// Close marks the task closed and stamps closed_at.
func (r *TaskRepo) Close(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, closed_at = $3, updated_at = now() WHERE id = $1
	`, id, models.TaskStatusClosed, closedAt)
	return err
}

// TaskFilter narrows List/Count. Empty Status means no status filter.
type TaskFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

func (f TaskFilter) where() (string, []any) {
	clause := ""
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		clause += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clause += fmt.Sprintf(" AND category = $%d", len(args))
	}
	return clause, args
}

func (r *TaskRepo) List(ctx context.Context, f TaskFilter) ([]*models.Task, error) {
	clause, args := f.where()
	args = append(args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+taskColumns+` FROM tasks WHERE TRUE%s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d
	`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if list == nil {
		list = []*models.Task{}
	}
	return list, rows.Err()
}

func (r *TaskRepo) Count(ctx context.Context, f TaskFilter) (int, error) {
	clause, args := f.where()
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE TRUE`+clause, args...).Scan(&n)
	return n, err
}

// CountByCreatorSince counts tasks created by the agent after the given time.
// Backs the per-agent creation rate limit.
func (r *TaskRepo) CountByCreatorSince(ctx context.Context, creatorID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks WHERE creator_id = $1 AND created_at >= $2
	`, creatorID, since).Scan(&n)
	return n, err
}
