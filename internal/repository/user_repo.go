package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltmarket/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, name, password_hash, avatar_url, title, bio, location, points, tasks_completed, tasks_accepted, current_streak, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.AvatarURL, &u.Title, &u.Bio, &u.Location, &u.Points, &u.TasksCompleted, &u.TasksAccepted, &u.CurrentStreak, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, avatar_url, title, bio, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.AvatarURL, u.Title, u.Bio, u.Location).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// ApplyAcceptReward atomically credits the reward and bumps the completion
// counters. Only the accept transition mutates these fields.
func (r *UserRepo) ApplyAcceptReward(ctx context.Context, tx pgx.Tx, id uuid.UUID, rewardPoints int) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `
		UPDATE users
		SET points = points + $2,
		    tasks_completed = tasks_completed + 1,
		    tasks_accepted = tasks_accepted + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, rewardPoints))
}

// Leaderboard orderings.
const (
	LeaderboardTotal  = "total"
	LeaderboardToday  = "today"
	LeaderboardStreak = "streak"
)

// Leaderboard returns users with points, ranked. "today" orders by total
// points like "total": there is no per-day point ledger to aggregate.
func (r *UserRepo) Leaderboard(ctx context.Context, kind string, limit int) ([]*models.User, error) {
	orderBy := "points DESC"
	if kind == LeaderboardStreak {
		orderBy = "current_streak DESC"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE points > 0 ORDER BY `+orderBy+` LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	if list == nil {
		list = []*models.User{}
	}
	return list, rows.Err()
}
