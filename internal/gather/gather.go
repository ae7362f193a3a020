// Package gather defines the interface for data gathering jobs that
// populate the local stores from external providers.
package gather

import "context"

// Gatherer is a long-running or one-shot data acquisition job.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string

	// Run executes the job until completion or context cancellation.
	Run(ctx context.Context) error
}
