// Package backend defines the daemon capability contract and its two
// implementations: the network client with CLI fallback, and test doubles.
package backend

import (
	"context"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// Backend is the capability set request handlers depend on. Implementations
// must be safe for concurrent use; every method may block on I/O and should
// honour ctx cancellation.
//
// Logs, Action, AddTask and GroupAction return the daemon's response as a
// JSON-shaped value. The shape is identical whether the network path or the
// CLI fallback produced it, so handlers never care which path ran.
type Backend interface {
	Status(ctx context.Context) (domain.Snapshot, error)
	Logs(ctx context.Context, taskID int, lines *int) (any, error)
	Action(ctx context.Context, taskID int, action string) (any, error)
	AddTask(ctx context.Context, request domain.AddTaskRequest) (any, error)
	GroupAction(ctx context.Context, request domain.GroupActionRequest) (any, error)
}
