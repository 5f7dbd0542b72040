// Package scheduler decides which job occupies which core as job-arrival,
// job-completion and quantum-expiry events arrive.
//
// A Scheduler advances a logical clock only from the timestamps it is given.
// It performs no I/O and has no internal locking: callers deliver events one
// at a time in non-decreasing time order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/me/gosched/internal/logging"
	"github.com/me/gosched/internal/priqueue"
	"github.com/me/gosched/pkg/model"
)

// Idle is returned when no scheduling change is made or a core stays idle.
const Idle = -1

var (
	ErrClosed          = errors.New("scheduler is shut down")
	ErrInvalidCore     = errors.New("core out of range")
	ErrClockRegression = errors.New("event time is before the scheduler clock")
	ErrDuplicateJob    = errors.New("duplicate job id")
	ErrInvalidJob      = errors.New("invalid job")
	ErrUnknownJob      = errors.New("unknown job")
)

// Config holds scheduler configuration.
type Config struct {
	Cores      int
	Discipline model.Discipline
}

// DefaultConfig returns a single-core FCFS configuration.
func DefaultConfig() Config {
	return Config{Cores: 1, Discipline: model.DisciplineFCFS}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var details []model.FieldError
	if c.Cores < 1 {
		details = append(details, model.FieldError{Field: "cores", Message: fmt.Sprintf("must be at least 1, got %d", c.Cores)})
	}
	if !c.Discipline.IsValid() {
		details = append(details, model.FieldError{Field: "discipline", Message: fmt.Sprintf("unknown discipline %q", c.Discipline)})
	}
	if len(details) > 0 {
		return model.NewValidationError("invalid scheduler config", details...)
	}
	return nil
}

// Scheduler owns the jobs and cores of one simulation.
type Scheduler struct {
	config Config
	policy Policy
	logger *slog.Logger

	jobs  *priqueue.Queue[*model.Job]
	cores []*model.Job
	now   int

	submitted map[int]bool
	stats     model.Stats
	records   []model.JobRecord
	closed    bool
}

// New starts up a scheduler with cfg.Cores idle cores.
func New(cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := PolicyFor(cfg.Discipline)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		config:    cfg,
		policy:    policy,
		logger:    logger.With("component", "scheduler", "discipline", cfg.Discipline.String()),
		jobs:      priqueue.New(policy.Compare),
		cores:     make([]*model.Job, cfg.Cores),
		submitted: make(map[int]bool),
	}, nil
}

// NewJob handles the arrival of a job and returns the core it should run on,
// or Idle if no scheduling change is made. A returned core that was busy has
// had its job preempted.
func (s *Scheduler) NewJob(jobID, time, runTime, priority int) (int, error) {
	if err := s.checkOpen(); err != nil {
		return Idle, err
	}
	if time < s.now {
		return Idle, fmt.Errorf("%w: job %d arrives at %d, clock is %d", ErrClockRegression, jobID, time, s.now)
	}
	if jobID < 0 {
		return Idle, fmt.Errorf("%w: negative job id %d", ErrInvalidJob, jobID)
	}
	if runTime < 0 {
		return Idle, fmt.Errorf("%w: job %d has negative run time %d", ErrInvalidJob, jobID, runTime)
	}
	if s.submitted[jobID] {
		return Idle, fmt.Errorf("%w: %d", ErrDuplicateJob, jobID)
	}

	job := model.NewJob(jobID, time, runTime, priority)
	s.submitted[jobID] = true
	s.stats.Submitted++
	s.advance(time)
	defer s.logQueue()

	if core := s.idleCore(); core != Idle {
		if err := s.install(job, core); err != nil {
			return Idle, err
		}
		s.offer(job)
		s.logger.Debug("job dispatched", "job_id", jobID, "core", core, "time", s.now)
		return core, nil
	}

	if core := s.policy.Victim(s.cores, job); core != Idle {
		evicted := s.cores[core]
		if err := s.evict(evicted); err != nil {
			return Idle, err
		}
		if err := s.install(job, core); err != nil {
			return Idle, err
		}
		s.offer(job)
		s.logger.Debug("job preempted", "job_id", evicted.ID, "by", jobID, "core", core, "time", s.now)
		return core, nil
	}

	if err := job.Transition(model.JobStateQueued); err != nil {
		return Idle, err
	}
	s.offer(job)
	s.logger.Debug("job queued", "job_id", jobID, "time", s.now)
	return Idle, nil
}

// JobFinished handles the completion of jobID on coreID. It returns the id of
// the job that should run next on coreID, or Idle. A job that is unknown, not
// running, or running on another core is rejected without any state change.
func (s *Scheduler) JobFinished(coreID, jobID, time int) (int, error) {
	if err := s.checkEvent(coreID, time); err != nil {
		return Idle, err
	}
	idx := s.jobs.IndexFunc(func(j *model.Job) bool { return j.ID == jobID })
	if idx < 0 {
		return Idle, fmt.Errorf("%w: %d", ErrUnknownJob, jobID)
	}
	job, _ := s.jobs.At(idx)
	if !job.IsAssigned() {
		return Idle, fmt.Errorf("%w: job %d is not running", ErrInvalidJob, jobID)
	}
	if job.Core != coreID {
		return Idle, fmt.Errorf("%w: job %d runs on core %d, not %d", ErrInvalidCore, jobID, job.Core, coreID)
	}

	s.advance(time)
	defer s.logQueue()

	s.jobs.RemoveAt(idx)
	s.cores[coreID] = nil
	if err := s.finish(job); err != nil {
		return Idle, err
	}
	return s.dispatchNext(coreID)
}

// QuantumExpired handles the end of a round-robin time slice on coreID. The
// job there goes to the back of the queue, or is finalized if it has no time
// left. It returns the id of the job that should run next on coreID, or Idle.
func (s *Scheduler) QuantumExpired(coreID, time int) (int, error) {
	if err := s.checkEvent(coreID, time); err != nil {
		return Idle, err
	}
	s.advance(time)
	defer s.logQueue()

	if job := s.cores[coreID]; job != nil {
		s.jobs.Remove(job)
		s.cores[coreID] = nil
		if job.Remaining > 0 {
			job.Core = model.Unset
			job.Updated = s.now
			if err := job.Transition(model.JobStateQueued); err != nil {
				return Idle, err
			}
			s.offer(job)
			s.logger.Debug("quantum expired", "job_id", job.ID, "core", coreID, "time", s.now, "remaining", job.Remaining)
		} else {
			job.Core = model.Unset
			if err := s.finish(job); err != nil {
				return Idle, err
			}
		}
	}
	return s.dispatchNext(coreID)
}

// AverageWaitingTime returns the mean time jobs spent queued.
func (s *Scheduler) AverageWaitingTime() float64 {
	return s.stats.AverageWaiting()
}

// AverageTurnaroundTime returns the mean time from arrival to completion.
func (s *Scheduler) AverageTurnaroundTime() float64 {
	return s.stats.AverageTurnaround()
}

// AverageResponseTime returns the mean time from arrival to first dispatch.
func (s *Scheduler) AverageResponseTime() float64 {
	return s.stats.AverageResponse()
}

// Shutdown releases the queue and cores. Every later event returns ErrClosed.
func (s *Scheduler) Shutdown() {
	if s.closed {
		return
	}
	if n := s.jobs.Size(); n > 0 {
		s.logger.Warn("shutting down with unfinished jobs", "count", n, "time", s.now)
	}
	s.jobs.Destroy()
	s.cores = nil
	s.closed = true
	s.logger.Debug("scheduler shut down", "submitted", s.stats.Submitted, "finished", s.stats.Finished)
}

// Discipline returns the active scheduling discipline.
func (s *Scheduler) Discipline() model.Discipline {
	return s.policy.Discipline()
}

// Cores returns the number of cores.
func (s *Scheduler) Cores() int {
	return s.config.Cores
}

// Now returns the logical clock.
func (s *Scheduler) Now() int {
	return s.now
}

// QueueSize returns the number of live jobs, running or waiting.
func (s *Scheduler) QueueSize() int {
	return s.jobs.Size()
}

// Queue returns copies of the live jobs in queue order.
func (s *Scheduler) Queue() []model.Job {
	items := s.jobs.Items()
	out := make([]model.Job, 0, len(items))
	for _, j := range items {
		out = append(out, *j)
	}
	return out
}

// CoreJob returns a copy of the job running on core, if any.
func (s *Scheduler) CoreJob(core int) (model.Job, bool) {
	if core < 0 || core >= len(s.cores) || s.cores[core] == nil {
		return model.Job{}, false
	}
	return *s.cores[core], true
}

// Stats returns the running totals.
func (s *Scheduler) Stats() model.Stats {
	return s.stats
}

// Records returns the finished jobs in completion order.
func (s *Scheduler) Records() []model.JobRecord {
	return append([]model.JobRecord(nil), s.records...)
}

// QueueString renders the queue as "id(core)" pairs, e.g. "2(-1) 4(0) 1(-1)".
func (s *Scheduler) QueueString() string {
	var b strings.Builder
	for i, j := range s.jobs.Items() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(j.ID))
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(j.Core))
		b.WriteByte(')')
	}
	return b.String()
}

func (s *Scheduler) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Scheduler) checkEvent(coreID, time int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if coreID < 0 || coreID >= len(s.cores) {
		return fmt.Errorf("%w: %d (cores: %d)", ErrInvalidCore, coreID, len(s.cores))
	}
	if time < s.now {
		return fmt.Errorf("%w: %d < %d", ErrClockRegression, time, s.now)
	}
	return nil
}

// advance moves the clock to time and charges the elapsed interval to every
// running job.
func (s *Scheduler) advance(time int) {
	s.now = time
	for _, job := range s.cores {
		if job == nil {
			continue
		}
		if !job.HasStarted() && job.Updated != s.now {
			job.Started = s.now
			job.Updated = s.now
			continue
		}
		job.Remaining -= s.now - job.Updated
		if job.Remaining < 0 {
			s.logger.Warn("job ran past its run time", "job_id", job.ID, "overrun", -job.Remaining, "time", s.now)
			job.Remaining = 0
		}
		job.Updated = s.now
	}
}

func (s *Scheduler) idleCore() int {
	for i, job := range s.cores {
		if job == nil {
			return i
		}
	}
	return Idle
}

// install places a freshly arrived job on core.
func (s *Scheduler) install(job *model.Job, core int) error {
	job.Waiting = 0
	job.Started = s.now
	job.Updated = s.now
	job.Core = core
	s.cores[core] = job
	return job.Transition(model.JobStateRunning)
}

// evict returns a running job to the queue. A job dispatched during this same
// timestep never actually ran, so its start is undone.
func (s *Scheduler) evict(job *model.Job) error {
	job.Core = model.Unset
	job.Updated = s.now
	if job.Started == s.now {
		job.Started = model.Unset
		job.Updated = model.Unset
	}
	return job.Transition(model.JobStateQueued)
}

// dispatchNext assigns the first queued job without a core to coreID.
func (s *Scheduler) dispatchNext(coreID int) (int, error) {
	idx := s.jobs.IndexFunc(func(j *model.Job) bool { return !j.IsAssigned() })
	if idx < 0 {
		s.logger.Debug("core idle", "core", coreID, "time", s.now)
		return Idle, nil
	}
	job, _ := s.jobs.At(idx)
	if !job.HasStarted() {
		job.Started = s.now
		job.Waiting = s.now - job.Arrival
	} else {
		job.Waiting += s.now - job.Updated
	}
	job.Updated = s.now
	job.Core = coreID
	s.cores[coreID] = job
	if err := job.Transition(model.JobStateRunning); err != nil {
		return Idle, err
	}
	s.logger.Debug("job dispatched", "job_id", job.ID, "core", coreID, "time", s.now, "waiting", job.Waiting)
	return job.ID, nil
}

// finish records the completion of a job that has left the queue.
func (s *Scheduler) finish(job *model.Job) error {
	if job.Remaining != 0 {
		s.logger.Debug("job finished with time left", "job_id", job.ID, "remaining", job.Remaining)
		job.Remaining = 0
	}
	job.Ended = s.now
	job.Core = model.Unset
	if err := job.Transition(model.JobStateFinished); err != nil {
		return err
	}
	rec, err := job.Record()
	if err != nil {
		return err
	}
	s.stats.Finished++
	s.stats.TotalTurnaround += float64(rec.Turnaround)
	s.stats.TotalWaiting += float64(rec.Waiting)
	s.stats.TotalResponse += float64(rec.Response)
	s.records = append(s.records, rec)
	s.logger.Debug("job finished", "job_id", job.ID, "time", s.now, "turnaround", rec.Turnaround, "waiting", rec.Waiting)
	return nil
}

func (s *Scheduler) offer(job *model.Job) {
	// job is never nil here.
	_, _ = s.jobs.Offer(job)
}

func (s *Scheduler) logQueue() {
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("queue", "time", s.now, "jobs", s.QueueString())
	}
}
