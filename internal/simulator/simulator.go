// Package simulator drives a Scheduler through a workload.
//
// The simulator plays the role of the machine: it tracks how much work each
// running job really has left, and turns the passage of time into
// job-finished and quantum-expired events. The scheduler only ever sees
// those events.
package simulator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/me/gosched/internal/logging"
	"github.com/me/gosched/internal/scheduler"
	"github.com/me/gosched/internal/workload"
	"github.com/me/gosched/pkg/model"
)

// ErrDesync is returned when the scheduler's view of the cores disagrees with
// the simulator's.
var ErrDesync = errors.New("scheduler and simulator disagree")

// Config holds simulation parameters.
type Config struct {
	Cores      int
	Discipline model.Discipline
	Quantum    int // RR only
}

// Segment is a contiguous interval during which a job ran on a core.
type Segment struct {
	Core  int `json:"core" yaml:"core"`
	JobID int `json:"job_id" yaml:"job_id"`
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Result is the outcome of one simulation run.
type Result struct {
	RunID             string            `json:"run_id" yaml:"run_id"`
	Workload          string            `json:"workload,omitempty" yaml:"workload,omitempty"`
	Discipline        model.Discipline  `json:"discipline" yaml:"discipline"`
	Cores             int               `json:"cores" yaml:"cores"`
	Quantum           int               `json:"quantum,omitempty" yaml:"quantum,omitempty"`
	Jobs              []model.JobRecord `json:"jobs" yaml:"jobs"`
	Segments          []Segment         `json:"segments" yaml:"segments"`
	Stats             model.Stats       `json:"stats" yaml:"stats"`
	AverageWaiting    float64           `json:"average_waiting" yaml:"average_waiting"`
	AverageTurnaround float64           `json:"average_turnaround" yaml:"average_turnaround"`
	AverageResponse   float64           `json:"average_response" yaml:"average_response"`
	Makespan          int               `json:"makespan" yaml:"makespan"`
	Events            int               `json:"events" yaml:"events"`
}

// Observer is called after all events at a timestep have been delivered.
type Observer func(now int, s *scheduler.Scheduler)

// Option configures a Simulator.
type Option func(*Simulator)

// WithObserver registers fn to inspect the scheduler after every timestep.
func WithObserver(fn Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, fn)
	}
}

// Simulator runs workloads under one configuration.
type Simulator struct {
	config    Config
	logger    *slog.Logger
	observers []Observer
}

// New creates a simulator. Quantum must be positive under RR.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Simulator, error) {
	if err := (scheduler.Config{Cores: cfg.Cores, Discipline: cfg.Discipline}).Validate(); err != nil {
		return nil, err
	}
	if cfg.Discipline == model.DisciplineRR && cfg.Quantum < 1 {
		return nil, model.NewValidationError("invalid simulation config",
			model.FieldError{Field: "quantum", Message: fmt.Sprintf("must be at least 1 for RR, got %d", cfg.Quantum)})
	}
	if cfg.Discipline != model.DisciplineRR {
		cfg.Quantum = 0
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Simulator{
		config: cfg,
		logger: logger.With("component", "simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// coreState is the machine's view of one core.
type coreState struct {
	jobID      int // scheduler.Idle when the core is free
	since      int // start of the current segment
	sliceStart int // start of the current RR quantum
}

// run holds the mutable state of one simulation.
type run struct {
	*Simulator
	sched     *scheduler.Scheduler
	cores     []coreState
	remaining map[int]int
	now       int
	events    int
	segments  []Segment
}

// Run simulates wl to completion and returns the per-job timings.
func (s *Simulator) Run(ctx context.Context, wl *workload.Workload) (*Result, error) {
	if err := wl.Validate(); err != nil {
		return nil, err
	}
	sched, err := scheduler.New(scheduler.Config{Cores: s.config.Cores, Discipline: s.config.Discipline}, s.logger)
	if err != nil {
		return nil, err
	}
	defer sched.Shutdown()

	r := &run{
		Simulator: s,
		sched:     sched,
		cores:     make([]coreState, s.config.Cores),
		remaining: make(map[int]int, len(wl.Jobs)),
	}
	for i := range r.cores {
		r.cores[i].jobID = scheduler.Idle
	}

	runID := "run_" + uuid.New().String()
	s.logger.Info("simulation started", "run_id", runID, "discipline", s.config.Discipline.String(),
		"cores", s.config.Cores, "jobs", len(wl.Jobs))

	arrivals := wl.Sorted()
	next := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, ok := r.nextEventTime(arrivals, next)
		if !ok {
			break
		}
		r.elapse(t)

		if err := r.completions(); err != nil {
			return nil, err
		}
		if err := r.quantumExpiries(); err != nil {
			return nil, err
		}
		for next < len(arrivals) && arrivals[next].Arrival == r.now {
			if err := r.arrive(arrivals[next]); err != nil {
				return nil, err
			}
			next++
		}

		if err := r.verify(); err != nil {
			return nil, err
		}
		for _, obs := range s.observers {
			obs(r.now, sched)
		}
	}

	if sched.QueueSize() != 0 {
		return nil, fmt.Errorf("%w: %d jobs left in queue at t=%d", ErrDesync, sched.QueueSize(), r.now)
	}

	records := sched.Records()
	slices.SortFunc(records, func(a, b model.JobRecord) int { return cmp.Compare(a.ID, b.ID) })
	res := &Result{
		RunID:             runID,
		Workload:          wl.Name,
		Discipline:        s.config.Discipline,
		Cores:             s.config.Cores,
		Quantum:           s.config.Quantum,
		Jobs:              records,
		Segments:          r.segments,
		Stats:             sched.Stats(),
		AverageWaiting:    sched.AverageWaitingTime(),
		AverageTurnaround: sched.AverageTurnaroundTime(),
		AverageResponse:   sched.AverageResponseTime(),
		Makespan:          r.now,
		Events:            r.events,
	}
	s.logger.Info("simulation finished", "run_id", runID, "makespan", res.Makespan, "events", res.Events,
		"avg_waiting", res.AverageWaiting, "avg_turnaround", res.AverageTurnaround, "avg_response", res.AverageResponse)
	return res, nil
}

// RunAll simulates wl under every discipline in turn.
func RunAll(ctx context.Context, wl *workload.Workload, cores, quantum int, logger *slog.Logger) ([]*Result, error) {
	results := make([]*Result, 0, len(model.Disciplines()))
	for _, d := range model.Disciplines() {
		sim, err := New(Config{Cores: cores, Discipline: d, Quantum: quantum}, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d, err)
		}
		res, err := sim.Run(ctx, wl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// nextEventTime returns the earliest pending arrival, completion or quantum
// boundary. It reports false when nothing is left to happen.
func (r *run) nextEventTime(arrivals []workload.JobSpec, next int) (int, bool) {
	t, ok := 0, false
	consider := func(v int) {
		if !ok || v < t {
			t, ok = v, true
		}
	}
	if next < len(arrivals) {
		consider(arrivals[next].Arrival)
	}
	for _, c := range r.cores {
		if c.jobID == scheduler.Idle {
			continue
		}
		consider(r.now + r.remaining[c.jobID])
		if r.config.Quantum > 0 {
			consider(c.sliceStart + r.config.Quantum)
		}
	}
	return t, ok
}

// elapse charges the interval up to t to every running job.
func (r *run) elapse(t int) {
	for _, c := range r.cores {
		if c.jobID != scheduler.Idle {
			r.remaining[c.jobID] -= t - r.now
		}
	}
	r.now = t
}

func (r *run) completions() error {
	for core := range r.cores {
		id := r.cores[core].jobID
		if id == scheduler.Idle || r.remaining[id] > 0 {
			continue
		}
		r.release(core)
		delete(r.remaining, id)
		r.events++
		nextID, err := r.sched.JobFinished(core, id, r.now)
		if err != nil {
			return fmt.Errorf("job %d finished on core %d at t=%d: %w", id, core, r.now, err)
		}
		r.assign(core, nextID)
	}
	return nil
}

func (r *run) quantumExpiries() error {
	if r.config.Quantum == 0 {
		return nil
	}
	for core := range r.cores {
		c := r.cores[core]
		if c.jobID == scheduler.Idle || r.now-c.sliceStart < r.config.Quantum {
			continue
		}
		r.release(core)
		r.events++
		nextID, err := r.sched.QuantumExpired(core, r.now)
		if err != nil {
			return fmt.Errorf("quantum expired on core %d at t=%d: %w", core, r.now, err)
		}
		r.assign(core, nextID)
	}
	return nil
}

func (r *run) arrive(spec workload.JobSpec) error {
	r.remaining[spec.ID] = spec.Run
	r.events++
	core, err := r.sched.NewJob(spec.ID, spec.Arrival, spec.Run, spec.Priority)
	if err != nil {
		return fmt.Errorf("job %d arrived at t=%d: %w", spec.ID, spec.Arrival, err)
	}
	if core == scheduler.Idle {
		return nil
	}
	if core < 0 || core >= len(r.cores) {
		return fmt.Errorf("%w: job %d placed on core %d", ErrDesync, spec.ID, core)
	}
	if prev := r.cores[core].jobID; prev != scheduler.Idle {
		r.logger.Debug("preemption", "core", core, "evicted", prev, "by", spec.ID, "time", r.now)
		r.release(core)
	}
	r.assign(core, spec.ID)
	return nil
}

// assign starts jobID on core; scheduler.Idle leaves the core free.
func (r *run) assign(core, jobID int) {
	r.cores[core] = coreState{jobID: jobID, since: r.now, sliceStart: r.now}
}

// release closes the running segment on core and frees it.
func (r *run) release(core int) {
	c := r.cores[core]
	if c.jobID != scheduler.Idle && c.since < r.now {
		r.addSegment(Segment{Core: core, JobID: c.jobID, Start: c.since, End: r.now})
	}
	r.cores[core].jobID = scheduler.Idle
}

// addSegment appends seg, merging it into the previous segment of the same
// job on the same core when the two touch.
func (r *run) addSegment(seg Segment) {
	for i := len(r.segments) - 1; i >= 0; i-- {
		last := &r.segments[i]
		if last.Core != seg.Core {
			continue
		}
		if last.JobID == seg.JobID && last.End == seg.Start {
			last.End = seg.End
			return
		}
		break
	}
	r.segments = append(r.segments, seg)
}

// verify checks that the scheduler places the same jobs on the same cores as
// the simulator, and that no core idles while a job waits.
func (r *run) verify() error {
	idle := false
	for core, c := range r.cores {
		job, busy := r.sched.CoreJob(core)
		switch {
		case c.jobID == scheduler.Idle && busy:
			return fmt.Errorf("%w: core %d idle, scheduler runs job %d at t=%d", ErrDesync, core, job.ID, r.now)
		case c.jobID != scheduler.Idle && !busy:
			return fmt.Errorf("%w: core %d runs job %d, scheduler has it idle at t=%d", ErrDesync, core, c.jobID, r.now)
		case busy && job.ID != c.jobID:
			return fmt.Errorf("%w: core %d runs job %d, scheduler says %d at t=%d", ErrDesync, core, c.jobID, job.ID, r.now)
		}
		if !busy {
			idle = true
		}
	}
	if idle && r.sched.QueueSize() > r.busyCores() {
		return fmt.Errorf("%w: a core is idle while %d jobs wait at t=%d", ErrDesync, r.sched.QueueSize()-r.busyCores(), r.now)
	}
	return nil
}

func (r *run) busyCores() int {
	n := 0
	for _, c := range r.cores {
		if c.jobID != scheduler.Idle {
			n++
		}
	}
	return n
}
