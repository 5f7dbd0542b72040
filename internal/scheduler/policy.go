package scheduler

import (
	"fmt"

	"github.com/me/gosched/pkg/model"
)

// Policy encodes one scheduling discipline: how jobs are ordered in the
// queue and, for preemptive disciplines, which running job a newcomer evicts.
type Policy interface {
	Discipline() model.Discipline

	// Compare returns a negative value if candidate belongs ahead of existing.
	Compare(candidate, existing *model.Job) int

	// Victim returns the core whose running job newcomer should replace, or
	// Idle. cores holds one entry per core and every entry is non-nil.
	Victim(cores []*model.Job, newcomer *model.Job) int
}

const (
	ahead  = -1
	behind = 1
)

// PolicyFor returns the policy implementing d.
func PolicyFor(d model.Discipline) (Policy, error) {
	switch d {
	case model.DisciplineFCFS:
		return fcfsPolicy{}, nil
	case model.DisciplineSJF:
		return sjfPolicy{}, nil
	case model.DisciplinePSJF:
		return psjfPolicy{}, nil
	case model.DisciplinePRI:
		return priPolicy{}, nil
	case model.DisciplinePPRI:
		return ppriPolicy{}, nil
	case model.DisciplineRR:
		return rrPolicy{}, nil
	}
	return nil, fmt.Errorf("no policy for discipline %q", d)
}

// nonPreemptive is embedded by policies that never evict a running job.
type nonPreemptive struct{}

func (nonPreemptive) Victim([]*model.Job, *model.Job) int { return Idle }

// fcfsPolicy keeps arrival order: insertion order already is arrival order.
type fcfsPolicy struct{ nonPreemptive }

func (fcfsPolicy) Discipline() model.Discipline { return model.DisciplineFCFS }

func (fcfsPolicy) Compare(_, _ *model.Job) int { return behind }

// sjfPolicy orders by run length but never jumps ahead of a job that has
// already started.
type sjfPolicy struct{ nonPreemptive }

func (sjfPolicy) Discipline() model.Discipline { return model.DisciplineSJF }

func (sjfPolicy) Compare(candidate, existing *model.Job) int {
	if candidate.RunTime < existing.Remaining && !existing.HasStarted() {
		return ahead
	}
	return behind
}

// psjfPolicy orders by remaining time regardless of start state.
type psjfPolicy struct{}

func (psjfPolicy) Discipline() model.Discipline { return model.DisciplinePSJF }

func (psjfPolicy) Compare(candidate, existing *model.Job) int {
	if candidate.Remaining < existing.Remaining {
		return ahead
	}
	return behind
}

// Victim picks the running job with the most remaining time, provided it has
// strictly more than the newcomer. Ties go to the lowest core.
func (psjfPolicy) Victim(cores []*model.Job, newcomer *model.Job) int {
	victim := Idle
	for i, running := range cores {
		if running.Remaining <= newcomer.Remaining {
			continue
		}
		if victim == Idle || running.Remaining > cores[victim].Remaining {
			victim = i
		}
	}
	return victim
}

// priPolicy orders by priority number but never jumps ahead of a job that
// has already started.
type priPolicy struct{ nonPreemptive }

func (priPolicy) Discipline() model.Discipline { return model.DisciplinePRI }

func (priPolicy) Compare(candidate, existing *model.Job) int {
	if candidate.Priority < existing.Priority && !existing.HasStarted() {
		return ahead
	}
	return behind
}

// ppriPolicy orders by priority number regardless of start state.
type ppriPolicy struct{}

func (ppriPolicy) Discipline() model.Discipline { return model.DisciplinePPRI }

func (ppriPolicy) Compare(candidate, existing *model.Job) int {
	if candidate.Priority < existing.Priority {
		return ahead
	}
	return behind
}

// Victim picks the running job with the largest priority number, provided it
// is strictly larger than the newcomer's. Among equally bad jobs the one that
// arrived last is evicted, not the one on the lowest core.
func (ppriPolicy) Victim(cores []*model.Job, newcomer *model.Job) int {
	victim := Idle
	for i, running := range cores {
		if running.Priority <= newcomer.Priority {
			continue
		}
		switch {
		case victim == Idle || running.Priority > cores[victim].Priority:
			victim = i
		case running.Priority == cores[victim].Priority && running.Arrival > cores[victim].Arrival:
			victim = i
		}
	}
	return victim
}

// rrPolicy appends at the tail; rotation comes from quantum expiry.
type rrPolicy struct{ nonPreemptive }

func (rrPolicy) Discipline() model.Discipline { return model.DisciplineRR }

func (rrPolicy) Compare(_, _ *model.Job) int { return behind }
