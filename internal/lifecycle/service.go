// Package lifecycle implements the task claim/submission/review state machine.
//
// Task.status is a deterministic projection of the task's active claim:
//
//	open --claim--> assigned --submit--> submitted --accept--> closed
//	  ^                |                     |
//	  |             (timeout)              reject
//	  +--- expired <---+                     |
//	  +--------------------------------------+
//
// Expired claims are reconciled lazily: a sweep runs at the start of claim,
// submit, and task-detail reads, never on a schedule. A task nobody touches
// again stays assigned until the next access.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltmarket/backend/internal/config"
	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/repository"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TaskStore is the subset of the task repository the engine needs.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	Close(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error
	List(ctx context.Context, f repository.TaskFilter) ([]*models.Task, error)
	Count(ctx context.Context, f repository.TaskFilter) (int, error)
	CountByCreatorSince(ctx context.Context, creatorID uuid.UUID, since time.Time) (int, error)
}

// ClaimStore is the subset of the claim repository the engine needs.
type ClaimStore interface {
	GetByTaskAndUserForUpdate(ctx context.Context, tx pgx.Tx, taskID, userID uuid.UUID) (*models.Claim, error)
	Upsert(ctx context.Context, tx pgx.Tx, c *models.Claim) error
	ExpireStale(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, now time.Time) (int64, error)
	GetSubmittedByTask(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Claim, error)
	MarkSubmitted(ctx context.Context, tx pgx.Tx, claimID uuid.UUID, submission, submissionURL, submissionCode *string, at time.Time) error
	MarkReviewed(ctx context.Context, tx pgx.Tx, claimID uuid.UUID, status string, rejectReason *string, at time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID, status string) ([]*repository.ClaimWithTask, error)
}

// UserStore applies the accept reward.
type UserStore interface {
	ApplyAcceptReward(ctx context.Context, tx pgx.Tx, id uuid.UUID, rewardPoints int) (*models.User, error)
}

// Notifier receives lifecycle side effects after the transaction commits.
// Implementations must be fire-and-forget: they never return errors to the
// engine and must not block.
type Notifier interface {
	TaskAccepted(ctx context.Context, taskID, userID uuid.UUID, rewardPoints int)
	TaskRejected(ctx context.Context, taskID, userID uuid.UUID, reason string)
}

// PolicySource yields the active anti-spam policy; reads must be cheap.
type PolicySource interface {
	Current() config.Policy
}

// Service is the Task Lifecycle Engine. Every operation runs in one database
// transaction; the task row lock serializes concurrent transitions.
type Service struct {
	pool     TxBeginner
	tasks    TaskStore
	claims   ClaimStore
	users    UserStore
	notifier Notifier
	policy   PolicySource
	log      *slog.Logger

	now func() time.Time
}

func NewService(pool TxBeginner, tasks TaskStore, claims ClaimStore, users UserStore, notifier Notifier, policy PolicySource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:     pool,
		tasks:    tasks,
		claims:   claims,
		users:    users,
		notifier: notifier,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// --- creation & queries ---

type CreateTaskInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	RewardPoints int    `json:"rewardPoints"`
	EvidenceType string `json:"evidenceType"`
	TimeoutHours int    `json:"timeoutHours"`
}

const (
	defaultTimeoutHours = 24
	maxTimeoutHours     = 168
)

// Create validates the input, enforces the per-agent hourly creation limit,
// and persists a new open task with a fresh dynamic code.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return nil, badRequest("Title is required")
	}
	if in.Description == "" {
		return nil, badRequest("Description is required")
	}
	if in.Category == "" {
		return nil, badRequest("Category is required")
	}
	if in.RewardPoints <= 0 {
		return nil, badRequest("Reward points must be positive")
	}
	switch in.EvidenceType {
	case "":
		in.EvidenceType = models.EvidenceTypeText
	case models.EvidenceTypeText, models.EvidenceTypeLink, models.EvidenceTypeFile:
	default:
		return nil, badRequestf("Invalid evidence type %q", in.EvidenceType)
	}
	if in.TimeoutHours == 0 {
		in.TimeoutHours = defaultTimeoutHours
	}
	if in.TimeoutHours < 1 || in.TimeoutHours > maxTimeoutHours {
		return nil, badRequestf("Timeout hours must be between 1 and %d", maxTimeoutHours)
	}

	limit := s.policy.Current().TasksPerHour
	recent, err := s.tasks.CountByCreatorSince(ctx, creatorID, s.now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	if recent >= limit {
		return nil, badRequestf("Rate limit exceeded. Maximum %d tasks per hour.", limit)
	}

	task := &models.Task{
		ID:           uuid.New(),
		CreatorID:    creatorID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		RewardPoints: in.RewardPoints,
		EvidenceType: in.EvidenceType,
		DynamicCode:  GenerateDynamicCode(),
		Status:       models.TaskStatusOpen,
		TimeoutHours: in.TimeoutHours,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListFilter narrows task listings. Status "all" bypasses status filtering;
// empty status defaults to open.
type ListFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.Task, int, error) {
	status := f.Status
	if status == "" {
		status = models.TaskStatusOpen
	}
	if status == "all" {
		status = ""
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rf := repository.TaskFilter{Status: status, Category: f.Category, Limit: limit, Offset: offset}
	tasks, err := s.tasks.List(ctx, rf)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tasks.Count(ctx, rf)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// GetTask returns the task after running the lazy expiry sweep, so a read can
// flip a timed-out assigned task back to open.
func (s *Service) GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, mapNoRows(err, "Task not found")
	}
	if err := s.releaseExpired(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// ListUserClaims returns the user's claims joined with their tasks.
func (s *Service) ListUserClaims(ctx context.Context, userID uuid.UUID, status string) ([]*repository.ClaimWithTask, error) {
	return s.claims.ListByUser(ctx, userID, status)
}

// --- transitions ---

// releaseExpired is the lazy sweep: claimed claims past expires_at move to
// expired, and the task drops back to open. Caller holds the task row lock.
// The dynamic code is never rotated here.
func (s *Service) releaseExpired(ctx context.Context, tx pgx.Tx, task *models.Task) error {
	n, err := s.claims.ExpireStale(ctx, tx, task.ID, s.now())
	if err != nil {
		return err
	}
	if n > 0 && task.Status == models.TaskStatusAssigned {
		if err := s.tasks.SetStatus(ctx, tx, task.ID, models.TaskStatusOpen); err != nil {
			return err
		}
		task.Status = models.TaskStatusOpen
		s.log.Info("released expired claims", "task_id", task.ID, "count", n)
	}
	return nil
}

// Claim assigns the task to the user. Re-claiming after expiry reuses the
// existing (task, user) row. Returns the claim and the task's dynamic code,
// which the user must echo back on submission.
func (s *Service) Claim(ctx context.Context, taskID, userID uuid.UUID) (*models.Claim, string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, "", mapNoRows(err, "Task not found")
	}
	if err := s.releaseExpired(ctx, tx, task); err != nil {
		return nil, "", err
	}
	if task.Status != models.TaskStatusOpen {
		return nil, "", badRequest("Task is not available for claiming")
	}

	existing, err := s.claims.GetByTaskAndUserForUpdate(ctx, tx, taskID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}
	if existing != nil && existing.Status != models.ClaimStatusExpired {
		return nil, "", badRequest("You have already claimed this task")
	}

	now := s.now()
	claim := &models.Claim{
		ID:        uuid.New(),
		TaskID:    taskID,
		UserID:    userID,
		Status:    models.ClaimStatusClaimed,
		ClaimedAt: now,
		ExpiresAt: now.Add(time.Duration(task.TimeoutHours) * time.Hour),
	}
	if err := s.claims.Upsert(ctx, tx, claim); err != nil {
		return nil, "", err
	}
	if err := s.tasks.SetStatus(ctx, tx, taskID, models.TaskStatusAssigned); err != nil {
		return nil, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}
	return claim, task.DynamicCode, nil
}

type SubmitInput struct {
	Submission     string `json:"submission"`
	SubmissionURL  string `json:"submissionUrl"`
	SubmissionCode string `json:"submissionCode"`
}

// Submit records the user's evidence. The verification code comparison is
// case-sensitive, and text submissions pass through the anti-spam policy.
func (s *Service) Submit(ctx context.Context, taskID, userID uuid.UUID, in SubmitInput) (*models.Claim, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, mapNoRows(err, "Task not found")
	}
	claim, err := s.claims.GetByTaskAndUserForUpdate(ctx, tx, taskID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, badRequest("You have not claimed this task")
		}
		return nil, err
	}
	if claim.Status != models.ClaimStatusClaimed {
		return nil, badRequest("Task cannot be submitted")
	}
	now := s.now()
	if now.After(claim.ExpiresAt) {
		return nil, badRequest("Your claim has expired")
	}
	if in.SubmissionCode != task.DynamicCode {
		return nil, badRequest("Invalid verification code")
	}
	switch task.EvidenceType {
	case models.EvidenceTypeLink, models.EvidenceTypeFile:
		if in.SubmissionURL == "" {
			return nil, badRequest("Link submission is required")
		}
	case models.EvidenceTypeText:
		if in.Submission == "" {
			return nil, badRequest("Text submission is required")
		}
	}

	pol := s.policy.Current()
	if in.Submission != "" {
		if err := checkSubmissionText(in.Submission, pol); err != nil {
			return nil, err
		}
	}
	if elapsed := now.Sub(claim.ClaimedAt); elapsed < pol.MinElapsed() {
		return nil, badRequest("Please take more time to complete the task (minimum 1 minute)")
	}

	if err := s.claims.MarkSubmitted(ctx, tx, claim.ID, strPtr(in.Submission), strPtr(in.SubmissionURL), &in.SubmissionCode, now); err != nil {
		return nil, err
	}
	if err := s.tasks.SetStatus(ctx, tx, taskID, models.TaskStatusSubmitted); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	claim.Status = models.ClaimStatusSubmitted
	claim.Submission = strPtr(in.Submission)
	claim.SubmissionURL = strPtr(in.SubmissionURL)
	claim.SubmissionCode = &in.SubmissionCode
	claim.SubmittedAt = &now
	return claim, nil
}

// checkSubmissionText enforces the heuristic anti-spam gates on text
// evidence. Character counts are measured in runes.
func checkSubmissionText(text string, pol config.Policy) error {
	if len([]rune(strings.TrimSpace(text))) < pol.MinSubmissionChars {
		return badRequestf("Submission too short. Minimum %d characters required.", pol.MinSubmissionChars)
	}
	if len([]rune(text)) > pol.MaxSubmissionChars {
		return badRequestf("Submission too long. Maximum %d characters.", pol.MaxSubmissionChars)
	}
	if longestRun(text) > pol.MaxRepeatRun {
		return badRequest("Invalid submission: contains repeated characters")
	}
	return nil
}

// longestRun returns the length of the longest run of identical runes.
func longestRun(s string) int {
	var prev rune
	run, longest := 0, 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// ReviewResult is returned by Accept and Reject.
type ReviewResult struct {
	Claim *models.Claim `json:"claim"`
	User  *models.User  `json:"user,omitempty"`
}

// Accept closes the task and credits the claimant, all in one transaction.
// The task_accepted notification is enqueued after commit and can never roll
// the transaction back.
func (s *Service) Accept(ctx context.Context, taskID, agentID uuid.UUID) (*ReviewResult, error) {
	task, claim, err := s.review(ctx, taskID, agentID, models.ClaimStatusAccepted, nil)
	if err != nil {
		return nil, err
	}
	s.notifier.TaskAccepted(ctx, taskID, claim.UserID, task.RewardPoints)
	return &ReviewResult{Claim: claim.Claim, User: claim.reviewedUser}, nil
}

// Reject returns the task to the open pool with its dynamic code unchanged;
// the claim keeps the reject reason.
func (s *Service) Reject(ctx context.Context, taskID, agentID uuid.UUID, reason string) (*ReviewResult, error) {
	_, claim, err := s.review(ctx, taskID, agentID, models.ClaimStatusRejected, &reason)
	if err != nil {
		return nil, err
	}
	s.notifier.TaskRejected(ctx, taskID, claim.UserID, reason)
	return &ReviewResult{Claim: claim.Claim}, nil
}

// reviewedClaim extends the claim with the updated user from an accept.
type reviewedClaim struct {
	*models.Claim
	reviewedUser *models.User
}

// review is the shared accept/reject transition. status is the claim's target
// status; rejectReason is non-nil only when rejecting.
func (s *Service) review(ctx context.Context, taskID, agentID uuid.UUID, status string, rejectReason *string) (*models.Task, *reviewedClaim, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, nil, mapNoRows(err, "Task not found")
	}
	if task.CreatorID != agentID {
		return nil, nil, forbidden("Only the task creator can review submissions")
	}
	if task.Status != models.TaskStatusSubmitted {
		if status == models.ClaimStatusAccepted {
			return nil, nil, badRequest("No submission to accept")
		}
		return nil, nil, badRequest("No submission to reject")
	}
	claim, err := s.claims.GetSubmittedByTask(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, badRequest("No submission found")
		}
		return nil, nil, err
	}

	now := s.now()
	if err := s.claims.MarkReviewed(ctx, tx, claim.ID, status, rejectReason, now); err != nil {
		return nil, nil, err
	}

	out := &reviewedClaim{Claim: claim}
	if status == models.ClaimStatusAccepted {
		if err := s.tasks.Close(ctx, tx, taskID, now); err != nil {
			return nil, nil, err
		}
		user, err := s.users.ApplyAcceptReward(ctx, tx, claim.UserID, task.RewardPoints)
		if err != nil {
			return nil, nil, err
		}
		out.reviewedUser = user
	} else {
		if err := s.tasks.SetStatus(ctx, tx, taskID, models.TaskStatusOpen); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	claim.Status = status
	claim.RejectReason = rejectReason
	claim.ReviewedAt = &now
	return task, out, nil
}

// --- helpers ---

// mapNoRows turns pgx.ErrNoRows into a NotFound error with the given message.
func mapNoRows(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(msg)
	}
	return err
}

// strPtr returns nil for empty strings so absent evidence stays NULL.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
