package model

import "fmt"

// Unset marks a timestamp or core index that has not been assigned yet.
const Unset = -1

// Job is one unit of simulated work. All times are logical clock ticks.
type Job struct {
	ID       int `json:"id" yaml:"id"`
	Arrival  int `json:"arrival" yaml:"arrival"`
	RunTime  int `json:"run_time" yaml:"run_time"`
	Priority int `json:"priority" yaml:"priority"`

	Remaining int      `json:"remaining" yaml:"remaining"`
	Waiting   int      `json:"waiting" yaml:"waiting"`
	Updated   int      `json:"updated" yaml:"updated"`
	Started   int      `json:"started" yaml:"started"`
	Ended     int      `json:"ended" yaml:"ended"`
	Core      int      `json:"core" yaml:"core"`
	State     JobState `json:"state" yaml:"state"`
}

// NewJob creates a PENDING job that has not run yet.
func NewJob(id, arrival, runTime, priority int) *Job {
	return &Job{
		ID:        id,
		Arrival:   arrival,
		RunTime:   runTime,
		Priority:  priority,
		Remaining: runTime,
		Updated:   Unset,
		Started:   Unset,
		Ended:     Unset,
		Core:      Unset,
		State:     JobStatePending,
	}
}

// HasStarted reports whether the job has been dispatched at least once.
func (j *Job) HasStarted() bool {
	return j.Started != Unset
}

// IsAssigned reports whether the job currently occupies a core.
func (j *Job) IsAssigned() bool {
	return j.Core != Unset
}

// Transition moves the job to next, rejecting moves the state table forbids.
func (j *Job) Transition(next JobState) error {
	if j.State == next {
		return nil
	}
	if !j.State.CanTransitionTo(next) {
		return &InvalidTransitionError{
			Entity: "job",
			ID:     fmt.Sprintf("%d", j.ID),
			From:   j.State.String(),
			To:     next.String(),
		}
	}
	j.State = next
	return nil
}

// Record summarizes a finished job. It returns an error if the job has not
// finished.
func (j *Job) Record() (JobRecord, error) {
	if j.State != JobStateFinished || j.Ended == Unset {
		return JobRecord{}, fmt.Errorf("job %d has not finished (state %s)", j.ID, j.State)
	}
	return JobRecord{
		ID:         j.ID,
		Arrival:    j.Arrival,
		RunTime:    j.RunTime,
		Priority:   j.Priority,
		Start:      j.Started,
		End:        j.Ended,
		Waiting:    j.Waiting,
		Turnaround: j.Ended - j.Arrival,
		Response:   j.Started - j.Arrival,
	}, nil
}

func (j *Job) String() string {
	return fmt.Sprintf("job=[ID=%d, Arrival=%d, Remaining=%d/%d, Priority=%d, Core=%d, State=%s]",
		j.ID, j.Arrival, j.Remaining, j.RunTime, j.Priority, j.Core, j.State)
}

// JobRecord is the immutable timing summary of a finished job.
type JobRecord struct {
	ID         int `json:"id" yaml:"id"`
	Arrival    int `json:"arrival" yaml:"arrival"`
	RunTime    int `json:"run_time" yaml:"run_time"`
	Priority   int `json:"priority" yaml:"priority"`
	Start      int `json:"start" yaml:"start"`
	End        int `json:"end" yaml:"end"`
	Waiting    int `json:"waiting" yaml:"waiting"`
	Turnaround int `json:"turnaround" yaml:"turnaround"`
	Response   int `json:"response" yaml:"response"`
}

// Stats holds the running sums kept by the scheduler and the averages
// derived from them.
type Stats struct {
	Submitted       int     `json:"submitted" yaml:"submitted"`
	Finished        int     `json:"finished" yaml:"finished"`
	TotalWaiting    float64 `json:"total_waiting" yaml:"total_waiting"`
	TotalTurnaround float64 `json:"total_turnaround" yaml:"total_turnaround"`
	TotalResponse   float64 `json:"total_response" yaml:"total_response"`
}

// AverageWaiting returns TotalWaiting / Submitted, or 0 when the sum is zero.
func (s Stats) AverageWaiting() float64 {
	return average(s.TotalWaiting, s.Submitted)
}

// AverageTurnaround returns TotalTurnaround / Submitted, or 0 when the sum is zero.
func (s Stats) AverageTurnaround() float64 {
	return average(s.TotalTurnaround, s.Submitted)
}

// AverageResponse returns TotalResponse / Submitted, or 0 when the sum is zero.
func (s Stats) AverageResponse() float64 {
	return average(s.TotalResponse, s.Submitted)
}

// A zero sum reads as "no data", which also covers an all-zero workload.
func average(sum float64, n int) float64 {
	if sum == 0 || n == 0 {
		return 0
	}
	return sum / float64(n)
}
