// Package report renders simulation results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/me/gosched/internal/simulator"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// Options tweaks text reports.
type Options struct {
	Gantt      bool // append a per-core timeline
	GanttWidth int  // maximum chart columns; 0 means DefaultGanttWidth
}

// Write renders res to w.
func Write(w io.Writer, res *simulator.Result, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return writeText(w, res, opts)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeText(w io.Writer, res *simulator.Result, opts Options) error {
	p := &printer{w: w}

	p.printf("Run:        %s\n", res.RunID)
	if res.Workload != "" {
		p.printf("Workload:   %s (%s jobs)\n", res.Workload, humanize.Comma(int64(len(res.Jobs))))
	}
	p.printf("Discipline: %s (%s)\n", res.Discipline, res.Discipline.Description())
	p.printf("Cores:      %d\n", res.Cores)
	if res.Quantum > 0 {
		p.printf("Quantum:    %d\n", res.Quantum)
	}
	p.printf("\n")

	if len(res.Jobs) == 0 {
		p.printf("No jobs.\n")
	} else {
		p.printf("%6s  %8s  %6s  %4s  %6s  %6s  %7s  %10s  %8s\n",
			"JOB", "ARRIVAL", "RUN", "PRI", "START", "END", "WAITING", "TURNAROUND", "RESPONSE")
		for _, j := range res.Jobs {
			p.printf("%6d  %8d  %6d  %4d  %6d  %6d  %7d  %10d  %8d\n",
				j.ID, j.Arrival, j.RunTime, j.Priority, j.Start, j.End, j.Waiting, j.Turnaround, j.Response)
		}
		p.printf("\n")
	}

	p.printf("Average waiting time:    %s\n", formatAverage(res.AverageWaiting))
	p.printf("Average turnaround time: %s\n", formatAverage(res.AverageTurnaround))
	p.printf("Average response time:   %s\n", formatAverage(res.AverageResponse))
	p.printf("Makespan:                %s ticks (%s events)\n", humanize.Comma(int64(res.Makespan)), humanize.Comma(int64(res.Events)))

	if opts.Gantt && len(res.Segments) > 0 {
		p.printf("\n")
		p.write(Gantt(res, opts.GanttWidth))
	}
	return p.err
}

// WriteComparison renders one summary line per result, marking the best
// average waiting time.
func WriteComparison(w io.Writer, results []*simulator.Result) error {
	p := &printer{w: w}
	if len(results) == 0 {
		p.printf("No results.\n")
		return p.err
	}
	best := 0
	for i, r := range results {
		if r.AverageWaiting < results[best].AverageWaiting {
			best = i
		}
	}

	p.printf("%-6s  %-44s  %10s  %10s  %10s  %10s\n", "SCHEME", "DESCRIPTION", "WAITING", "TURNAROUND", "RESPONSE", "MAKESPAN")
	p.printf("%-6s  %-44s  %10s  %10s  %10s  %10s\n", "------", "-----------", "-------", "----------", "--------", "--------")
	for i, r := range results {
		mark := ""
		if i == best {
			mark = "  *"
		}
		p.printf("%-6s  %-44s  %10s  %10s  %10s  %10s%s\n",
			r.Discipline, r.Discipline.Description(),
			formatAverage(r.AverageWaiting), formatAverage(r.AverageTurnaround), formatAverage(r.AverageResponse),
			humanize.Comma(int64(r.Makespan)), mark)
	}
	p.printf("\n* lowest average waiting time\n")
	return p.err
}

// WriteResults renders several results: a comparison table for text, or the
// full results as a list for JSON and YAML.
func WriteResults(w io.Writer, results []*simulator.Result, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return WriteComparison(w, results)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func formatAverage(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// printer remembers the first write error so callers can check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}
