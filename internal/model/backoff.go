package model

import "time"

// AttemptRecord is one logged attempt of a named maintenance operation.
type AttemptRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// FailureRecord counts consecutive failures of one operation. Count resets to
// zero on any success and is never negative.
type FailureRecord struct {
	Count       int       `json:"count"`
	LastFailure time.Time `json:"lastFailure"`
}

// BackoffState is the circuit-breaker state persisted across runs. It is an
// explicit object loaded at process start, mutated in memory and flushed at
// the end of a run; it is passed by reference, never held as a global.
type BackoffState struct {
	DeploymentAttempts map[string][]AttemptRecord `json:"deploymentAttempts"`
	FailedDeployments  map[string]FailureRecord   `json:"failedDeployments"`
}

// NewBackoffState returns an empty state with allocated maps.
func NewBackoffState() *BackoffState {
	return &BackoffState{
		DeploymentAttempts: make(map[string][]AttemptRecord),
		FailedDeployments:  make(map[string]FailureRecord),
	}
}
