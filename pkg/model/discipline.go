package model

import (
	"fmt"
	"strings"
)

// Discipline identifies the scheduling policy used by the simulator.
type Discipline string

const (
	DisciplineFCFS Discipline = "FCFS"
	DisciplineSJF  Discipline = "SJF"
	DisciplinePSJF Discipline = "PSJF"
	DisciplinePRI  Discipline = "PRI"
	DisciplinePPRI Discipline = "PPRI"
	DisciplineRR   Discipline = "RR"
)

var disciplineAliases = map[string]Discipline{
	"fcfs":                          DisciplineFCFS,
	"first-come-first-served":       DisciplineFCFS,
	"sjf":                           DisciplineSJF,
	"shortest-job-first":            DisciplineSJF,
	"psjf":                          DisciplinePSJF,
	"srtf":                          DisciplinePSJF,
	"shortest-remaining-time":       DisciplinePSJF,
	"preemptive-shortest-job-first": DisciplinePSJF,
	"pri":                           DisciplinePRI,
	"priority":                      DisciplinePRI,
	"ppri":                          DisciplinePPRI,
	"preemptive-priority":           DisciplinePPRI,
	"rr":                            DisciplineRR,
	"round-robin":                   DisciplineRR,
}

// Disciplines returns all supported disciplines in canonical order.
func Disciplines() []Discipline {
	return []Discipline{
		DisciplineFCFS,
		DisciplineSJF,
		DisciplinePSJF,
		DisciplinePRI,
		DisciplinePPRI,
		DisciplineRR,
	}
}

// ParseDiscipline converts a name or alias (case-insensitive) to a Discipline.
func ParseDiscipline(s string) (Discipline, error) {
	if d, ok := disciplineAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown scheduling discipline %q", s)
}

// String returns the string representation of the discipline.
func (d Discipline) String() string {
	return string(d)
}

// IsValid reports whether d is one of the six supported disciplines.
func (d Discipline) IsValid() bool {
	switch d {
	case DisciplineFCFS, DisciplineSJF, DisciplinePSJF, DisciplinePRI, DisciplinePPRI, DisciplineRR:
		return true
	}
	return false
}

// IsPreemptive returns true if a newly arrived job may evict a running one.
func (d Discipline) IsPreemptive() bool {
	return d == DisciplinePSJF || d == DisciplinePPRI
}

// Description returns a short human-readable name.
func (d Discipline) Description() string {
	switch d {
	case DisciplineFCFS:
		return "first come, first served"
	case DisciplineSJF:
		return "shortest job first (non-preemptive)"
	case DisciplinePSJF:
		return "shortest remaining time first (preemptive)"
	case DisciplinePRI:
		return "fixed priority (non-preemptive)"
	case DisciplinePPRI:
		return "fixed priority (preemptive)"
	case DisciplineRR:
		return "round robin"
	}
	return "unknown"
}
