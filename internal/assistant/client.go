// Package assistant bridges a chat sender to a stateful assistant thread:
// it keeps one thread per sender, appends each inbound message, runs the
// assistant and waits for the reply.
package assistant

import "context"

// RunStatus is the lifecycle state of an assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Completed reports whether the run finished successfully.
func (s RunStatus) Completed() bool {
	return s == RunStatusCompleted
}

// Failed reports whether the run ended without a reply. All of these are
// final; none is retried.
func (s RunStatus) Failed() bool {
	switch s {
	case RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// Terminal reports whether polling can stop.
func (s RunStatus) Terminal() bool {
	return s.Completed() || s.Failed()
}

// Run is a snapshot of an assistant run.
type Run struct {
	ID     string
	Status RunStatus
	// LastError is the service's explanation for a failed run, if any.
	LastError string
}

// Message is one entry of a thread.
type Message struct {
	ID   string
	Role string
	// Text is the value of the first content part when that part is text.
	Text string
}

// Roles used in thread messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the subset of the assistant service the bridge needs.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	// ListMessages returns the thread's most recent messages, newest first.
	// A non-empty runID limits the list to messages created by that run.
	ListMessages(ctx context.Context, threadID, runID string) ([]Message, error)
}
