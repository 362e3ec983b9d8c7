package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/moltmarket/backend/internal/models"
)

// CreateNotificationArgs is the River job payload for persisting one
// notification row.
type CreateNotificationArgs struct {
	UserID  uuid.UUID  `json:"user_id"`
	Type    string     `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content,omitempty"`
	Link    string     `json:"link,omitempty"`
	TaskID  *uuid.UUID `json:"task_id,omitempty"`
}

func (CreateNotificationArgs) Kind() string { return "create_notification" }

// NotificationStore is the repository subset the worker needs.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type CreateNotificationWorker struct {
	river.WorkerDefaults[CreateNotificationArgs]
	store NotificationStore
}

func NewCreateNotificationWorker(store NotificationStore) *CreateNotificationWorker {
	return &CreateNotificationWorker{store: store}
}

func (w *CreateNotificationWorker) Work(ctx context.Context, job *river.Job[CreateNotificationArgs]) error {
	return w.workFromArgs(ctx, job.Args)
}

func (w *CreateNotificationWorker) workFromArgs(ctx context.Context, args CreateNotificationArgs) error {
	n := &models.Notification{
		ID:     uuid.New(),
		UserID: args.UserID,
		Type:   args.Type,
		Title:  args.Title,
		TaskID: args.TaskID,
	}
	if args.Content != "" {
		n.Content = &args.Content
	}
	if args.Link != "" {
		n.Link = &args.Link
	}
	return w.store.Create(ctx, n)
}
