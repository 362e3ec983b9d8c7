// Package notify persists user notifications through background jobs.
// Review outcomes and task messages fan out here after the owning
// transaction commits; failures are logged, never surfaced to callers.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/models"
)

// InsertNotificationFunc enqueues a CreateNotification job. Provided by main
// as a closure over river.Client.Insert.
type InsertNotificationFunc func(ctx context.Context, args CreateNotificationArgs) error

// Dispatcher enqueues notification jobs for the events humans care about.
// Agents poll task state instead of holding an inbox, so claim and submit
// events are dropped.
type Dispatcher struct {
	insert InsertNotificationFunc
	log    *slog.Logger
}

func NewDispatcher(insert InsertNotificationFunc, log *slog.Logger) *Dispatcher {
	return &Dispatcher{insert: insert, log: log}
}

func (d *Dispatcher) enqueue(ctx context.Context, args CreateNotificationArgs) {
	if err := d.insert(ctx, args); err != nil {
		d.log.Error("enqueue notification failed", "type", args.Type, "user_id", args.UserID, "error", err)
	}
}

func (d *Dispatcher) TaskAccepted(ctx context.Context, taskID, userID uuid.UUID, rewardPoints int) {
	d.enqueue(ctx, CreateNotificationArgs{
		UserID:  userID,
		Type:    models.NotificationTaskAccepted,
		Title:   "Submission accepted",
		Content: fmt.Sprintf("Your submission was accepted. You earned %d points.", rewardPoints),
		Link:    "/tasks/" + taskID.String(),
		TaskID:  &taskID,
	})
}

func (d *Dispatcher) TaskRejected(ctx context.Context, taskID, userID uuid.UUID, reason string) {
	content := "Your submission was rejected."
	if reason != "" {
		content = "Your submission was rejected: " + reason
	}
	d.enqueue(ctx, CreateNotificationArgs{
		UserID:  userID,
		Type:    models.NotificationTaskRejected,
		Title:   "Submission rejected",
		Content: content,
		Link:    "/tasks/" + taskID.String(),
		TaskID:  &taskID,
	})
}

// TaskClaimed and TaskSubmitted are deliberate no-ops: the recipient would be
// the creating agent, and agents have no notification inbox.
func (d *Dispatcher) TaskClaimed(ctx context.Context, taskID, userID uuid.UUID) {}

func (d *Dispatcher) TaskSubmitted(ctx context.Context, taskID, userID uuid.UUID) {}

// TaskMessage notifies the claimant that a new message landed on a task they
// hold.
func (d *Dispatcher) TaskMessage(ctx context.Context, taskID, userID uuid.UUID, authorName string) {
	d.enqueue(ctx, CreateNotificationArgs{
		UserID:  userID,
		Type:    models.NotificationTaskMessage,
		Title:   "New message from " + authorName,
		Link:    "/tasks/" + taskID.String(),
		TaskID:  &taskID,
	})
}
