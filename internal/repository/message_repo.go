package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltmarket/backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.TaskMessage) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO task_messages (id, task_id, user_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.TaskID, m.UserID, m.Content).Scan(&m.CreatedAt)
}

// MessageWithAuthor is returned by ListByTask (message joined with the
// author's public profile fields).
type MessageWithAuthor struct {
	models.TaskMessage
	AuthorName      string  `json:"author_name"`
	AuthorAvatarURL *string `json:"author_avatar_url,omitempty"`
}

func (r *MessageRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*MessageWithAuthor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.task_id, m.user_id, m.content, m.created_at, u.name, u.avatar_url
		FROM task_messages m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.task_id = $1
		ORDER BY m.created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*MessageWithAuthor
	for rows.Next() {
		var m MessageWithAuthor
		if err := rows.Scan(&m.ID, &m.TaskID, &m.UserID, &m.Content, &m.CreatedAt, &m.AuthorName, &m.AuthorAvatarURL); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	if list == nil {
		list = []*MessageWithAuthor{}
	}
	return list, rows.Err()
}
