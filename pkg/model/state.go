package model

// JobState represents the lifecycle state of a simulated Job.
type JobState string

const (
	JobStatePending  JobState = "PENDING"
	JobStateQueued   JobState = "QUEUED"
	JobStateRunning  JobState = "RUNNING"
	JobStateFinished JobState = "FINISHED"
)

// String returns the string representation of the job state.
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true if the job is in a final state.
func (s JobState) IsTerminal() bool {
	return s == JobStateFinished
}

// ValidJobTransitions defines the allowed state transitions for Jobs.
// RUNNING -> QUEUED is a preemption (or an RR quantum expiry).
var ValidJobTransitions = map[JobState][]JobState{
	JobStatePending: {JobStateQueued, JobStateRunning},
	JobStateQueued:  {JobStateRunning},
	JobStateRunning: {JobStateQueued, JobStateFinished},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, allowed := range ValidJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
