package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/proofslot/internal/ir"
)

// Notification describes one successful submission.
// It is meant for audit and logging collaborators, not as a data contract.
type Notification struct {
	SubmissionID string
	Submitter    ir.Identity
	Address      ir.Address
	EventType    ir.EventType
	Timestamp    int64
	Created      bool
}

// Notifier receives a Notification after every successful submission.
// ProofSubmitted runs after the transaction commits and cannot fail the
// submission.
type Notifier interface {
	ProofSubmitted(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// ProofSubmitted calls f.
func (f NotifierFunc) ProofSubmitted(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes each notification as a structured log line.
type LogNotifier struct {
	Logger *slog.Logger
}

// ProofSubmitted logs n at info level.
func (l LogNotifier) ProofSubmitted(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "proof submitted",
		"submission_id", n.SubmissionID,
		"submitter", n.Submitter.String(),
		"address", n.Address.String(),
		"event_type", n.EventType.String(),
		"timestamp", n.Timestamp,
		"created", n.Created,
	)
}
