package interfaces

import (
	"context"
	"time"
)

// Watchdog enforces per-job idle timeouts independent of any HTTP request
// lifetime. One timer per job; the timer firing is the only path that fails
// a job without an explicit webhook saying so.
type Watchdog interface {
	// Start clears any prior timer for the job and schedules a new one
	Start(ctx context.Context, jobID string, timeout time.Duration)

	// Bump reschedules the timer; timeout <= 0 keeps the current timeout
	Bump(jobID string, timeout time.Duration)

	// Clear removes the job's timer. Called on terminal status; removal is
	// atomic with respect to the timer firing.
	Clear(jobID string)

	// Active reports whether a timer is currently armed for the job
	Active(jobID string) bool

	Shutdown()
}
