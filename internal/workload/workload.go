// Package workload loads the job arrivals that drive a simulation.
package workload

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/me/gosched/pkg/model"
)

// Format identifies a workload file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// JobSpec describes one job arrival.
type JobSpec struct {
	ID       int `yaml:"id" json:"id"`
	Arrival  int `yaml:"arrival" json:"arrival"`
	Run      int `yaml:"run" json:"run"`
	Priority int `yaml:"priority" json:"priority"`
}

// Workload is an ordered list of job arrivals.
type Workload struct {
	Name string    `yaml:"name,omitempty" json:"name,omitempty"`
	Jobs []JobSpec `yaml:"jobs" json:"jobs"`
}

// yamlJob lets a YAML entry omit its id.
type yamlJob struct {
	ID       *int `yaml:"id"`
	Arrival  int  `yaml:"arrival"`
	Run      int  `yaml:"run"`
	Priority int  `yaml:"priority"`
}

type yamlWorkload struct {
	Name string    `yaml:"name"`
	Jobs []yamlJob `yaml:"jobs"`
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("cannot infer workload format from %q (want .yaml, .yml or .csv)", path)
}

// Load reads, parses and validates the workload at path.
func Load(path string) (*Workload, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workload: %w", err)
	}
	defer f.Close()

	wl, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if wl.Name == "" {
		wl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := wl.Validate(); err != nil {
		return nil, err
	}
	return wl, nil
}

// Parse decodes a workload. Jobs without an explicit id get their zero-based
// position in the file.
func Parse(r io.Reader, format Format) (*Workload, error) {
	switch format {
	case FormatYAML:
		return parseYAML(r)
	case FormatCSV:
		return parseCSV(r)
	}
	return nil, fmt.Errorf("unsupported workload format %q", format)
}

func parseYAML(r io.Reader) (*Workload, error) {
	var raw yamlWorkload
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &Workload{}, nil
		}
		return nil, err
	}
	wl := &Workload{Name: raw.Name, Jobs: make([]JobSpec, 0, len(raw.Jobs))}
	for i, j := range raw.Jobs {
		id := i
		if j.ID != nil {
			id = *j.ID
		}
		wl.Jobs = append(wl.Jobs, JobSpec{ID: id, Arrival: j.Arrival, Run: j.Run, Priority: j.Priority})
	}
	return wl, nil
}

func parseCSV(r io.Reader) (*Workload, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Workload{}, nil
	}

	headers := records[0]
	colIndexOf := func(name string) int {
		return slices.IndexFunc(headers, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), name)
		})
	}
	colID := colIndexOf("id")
	colArrival := colIndexOf("arrival")
	colRun := colIndexOf("run")
	colPriority := colIndexOf("priority")
	if colArrival < 0 || colRun < 0 {
		return nil, fmt.Errorf("csv header %v must contain arrival and run columns", headers)
	}

	wl := &Workload{Jobs: make([]JobSpec, 0, len(records)-1)}
	for i, record := range records[1:] {
		line := i + 2
		field := func(col int, name string) (int, error) {
			if col < 0 {
				return 0, nil
			}
			v, err := strconv.Atoi(strings.TrimSpace(record[col]))
			if err != nil {
				return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			return v, nil
		}
		spec := JobSpec{ID: i}
		if colID >= 0 {
			if spec.ID, err = field(colID, "id"); err != nil {
				return nil, err
			}
		}
		if spec.Arrival, err = field(colArrival, "arrival"); err != nil {
			return nil, err
		}
		if spec.Run, err = field(colRun, "run"); err != nil {
			return nil, err
		}
		if spec.Priority, err = field(colPriority, "priority"); err != nil {
			return nil, err
		}
		wl.Jobs = append(wl.Jobs, spec)
	}
	return wl, nil
}

// Validate reports every malformed job.
func (w *Workload) Validate() error {
	var details []model.FieldError
	seen := make(map[int]int, len(w.Jobs))
	for i, j := range w.Jobs {
		path := fmt.Sprintf("jobs[%d]", i)
		if j.ID < 0 {
			details = append(details, model.FieldError{Path: path, Field: "id", Message: fmt.Sprintf("must not be negative, got %d", j.ID)})
		}
		if j.Arrival < 0 {
			details = append(details, model.FieldError{Path: path, Field: "arrival", Message: fmt.Sprintf("must not be negative, got %d", j.Arrival)})
		}
		if j.Run < 1 {
			details = append(details, model.FieldError{Path: path, Field: "run", Message: fmt.Sprintf("must be at least 1, got %d", j.Run)})
		}
		if prev, dup := seen[j.ID]; dup {
			details = append(details, model.FieldError{Path: path, Field: "id", Message: fmt.Sprintf("duplicate id %d (also jobs[%d])", j.ID, prev)})
		} else {
			seen[j.ID] = i
		}
	}
	if len(details) > 0 {
		return model.NewValidationError("invalid workload", details...)
	}
	return nil
}

// Sorted returns the jobs ordered by arrival time. Jobs arriving together
// keep file order.
func (w *Workload) Sorted() []JobSpec {
	jobs := slices.Clone(w.Jobs)
	slices.SortStableFunc(jobs, func(a, b JobSpec) int {
		return cmp.Compare(a.Arrival, b.Arrival)
	})
	return jobs
}

// TotalRun returns the sum of all run times.
func (w *Workload) TotalRun() int {
	total := 0
	for _, j := range w.Jobs {
		total += j.Run
	}
	return total
}
