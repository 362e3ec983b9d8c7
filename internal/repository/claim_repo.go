package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltmarket/backend/internal/models"
)

type ClaimRepo struct {
	pool *pgxpool.Pool
}

func NewClaimRepo(pool *pgxpool.Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

const claimColumns = `id, task_id, user_id, status, claimed_at, expires_at, submitted_at, submission, submission_url, submission_code, reject_reason, reviewed_at`

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var c models.Claim
	err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Status, &c.ClaimedAt, &c.ExpiresAt, &c.SubmittedAt, &c.Submission, &c.SubmissionURL, &c.SubmissionCode, &c.RejectReason, &c.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClaimRepo) GetByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (*models.Claim, error) {
	return scanClaim(r.pool.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE task_id = $1 AND user_id = $2
	`, taskID, userID))
}

// GetByTaskAndUserForUpdate locks the claim row. Call within a transaction.
func (r *ClaimRepo) GetByTaskAndUserForUpdate(ctx context.Context, tx pgx.Tx, taskID, userID uuid.UUID) (*models.Claim, error) {
	return scanClaim(tx.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE task_id = $1 AND user_id = $2 FOR UPDATE
	`, taskID, userID))
}

// Upsert inserts the claim or, when the (task_id, user_id) row already exists
// (a previous expired attempt), overwrites it with a fresh claim. Claim
// history per user per task is deliberately not preserved.
func (r *ClaimRepo) Upsert(ctx context.Context, tx pgx.Tx, c *models.Claim) error {
	return tx.QueryRow(ctx, `
		INSERT INTO claims (id, task_id, user_id, status, claimed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (task_id, user_id) DO UPDATE
		SET status = EXCLUDED.status, claimed_at = EXCLUDED.claimed_at, expires_at = EXCLUDED.expires_at
		RETURNING id
	`, c.ID, c.TaskID, c.UserID, c.Status, c.ClaimedAt, c.ExpiresAt).Scan(&c.ID)
}

// ExpireStale bulk-moves timed-out claims on the task from claimed to expired
// and returns how many rows changed. The lazy sweep.
func (r *ClaimRepo) ExpireStale(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, now time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE claims SET status = $3 WHERE task_id = $1 AND status = $2 AND expires_at < $4
	`, taskID, models.ClaimStatusClaimed, models.ClaimStatusExpired, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetActiveByTask returns the claim currently holding the task, if any.
func (r *ClaimRepo) GetActiveByTask(ctx context.Context, taskID uuid.UUID) (*models.Claim, error) {
	return scanClaim(r.pool.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE task_id = $1 AND status IN ($2, $3)
	`, taskID, models.ClaimStatusClaimed, models.ClaimStatusSubmitted))
}

// GetSubmittedByTask returns the task's claim awaiting review, locked.
func (r *ClaimRepo) GetSubmittedByTask(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Claim, error) {
	return scanClaim(tx.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE task_id = $1 AND status = $2 FOR UPDATE
	`, taskID, models.ClaimStatusSubmitted))
}

func (r *ClaimRepo) MarkSubmitted(ctx context.Context, tx pgx.Tx, claimID uuid.UUID, submission, submissionURL, submissionCode *string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE claims SET status = $2, submission = $3, submission_url = $4, submission_code = $5, submitted_at = $6
		WHERE id = $1
	`, claimID, models.ClaimStatusSubmitted, submission, submissionURL, submissionCode, at)
	return err
}

// MarkReviewed finalizes a review: status accepted or rejected, with the
// reject reason when rejecting.
func (r *ClaimRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, claimID uuid.UUID, status string, rejectReason *string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE claims SET status = $2, reject_reason = $3, reviewed_at = $4 WHERE id = $1
	`, claimID, status, rejectReason, at)
	return err
}

// ClaimWithTask is returned by ListByUser (claim joined with its task).
type ClaimWithTask struct {
	Claim models.Claim `json:"claim"`
	Task  models.Task  `json:"task"`
}

func (r *ClaimRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string) ([]*ClaimWithTask, error) {
	query := `
		SELECT c.id, c.task_id, c.user_id, c.status, c.claimed_at, c.expires_at, c.submitted_at, c.submission, c.submission_url, c.submission_code, c.reject_reason, c.reviewed_at,
		       t.id, t.creator_id, t.title, t.description, t.category, t.reward_points, t.evidence_type, t.dynamic_code, t.status, t.timeout_hours, t.closed_at, t.created_at, t.updated_at
		FROM claims c
		INNER JOIN tasks t ON t.id = c.task_id
		WHERE c.user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND c.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY c.claimed_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*ClaimWithTask
	for rows.Next() {
		var out ClaimWithTask
		c, t := &out.Claim, &out.Task
		err := rows.Scan(
			&c.ID, &c.TaskID, &c.UserID, &c.Status, &c.ClaimedAt, &c.ExpiresAt, &c.SubmittedAt, &c.Submission, &c.SubmissionURL, &c.SubmissionCode, &c.RejectReason, &c.ReviewedAt,
			&t.ID, &t.CreatorID, &t.Title, &t.Description, &t.Category, &t.RewardPoints, &t.EvidenceType, &t.DynamicCode, &t.Status, &t.TimeoutHours, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, &out)
	}
	if list == nil {
		list = []*ClaimWithTask{}
	}
	return list, rows.Err()
}
