package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/me/gosched/internal/simulator"
)

// DefaultGanttWidth is the chart width used when none is given.
const DefaultGanttWidth = 72

const ganttSymbols = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Gantt draws one row per core. Each column shows the job running at the
// start of its interval, '.' when the core is idle. Long runs are scaled so
// that no row is wider than width columns.
func Gantt(res *simulator.Result, width int) string {
	if width <= 0 {
		width = DefaultGanttWidth
	}
	if res.Makespan == 0 || res.Cores == 0 {
		return ""
	}
	scale := (res.Makespan + width - 1) / width
	columns := (res.Makespan + scale - 1) / scale

	byCore := make([][]simulator.Segment, res.Cores)
	for _, seg := range res.Segments {
		if seg.Core >= 0 && seg.Core < res.Cores {
			byCore[seg.Core] = append(byCore[seg.Core], seg)
		}
	}

	label := len(strconv.Itoa(res.Cores - 1))
	var b strings.Builder
	unit := "tick"
	if scale > 1 {
		unit = "ticks"
	}
	fmt.Fprintf(&b, "Gantt (1 column = %d %s)\n", scale, unit)
	for core, segs := range byCore {
		fmt.Fprintf(&b, "core %*d |", label, core)
		for c := 0; c < columns; c++ {
			b.WriteByte(cell(segs, c*scale))
		}
		b.WriteString("|\n")
	}

	indent := strings.Repeat(" ", len("core ")+label+len(" |"))
	end := strconv.Itoa(res.Makespan)
	gap := columns - len(end)
	if gap < 1 {
		gap = 1
	}
	fmt.Fprintf(&b, "%s0%s%s\n", indent, strings.Repeat(" ", gap), end)

	if legend := ganttLegend(res); legend != "" {
		b.WriteString(legend)
	}
	return b.String()
}

func cell(segs []simulator.Segment, t int) byte {
	for _, s := range segs {
		if s.Start <= t && t < s.End {
			return symbol(s.JobID)
		}
	}
	return '.'
}

func symbol(id int) byte {
	if id < 0 || id >= len(ganttSymbols) {
		return '#'
	}
	return ganttSymbols[id]
}

// ganttLegend lists the jobs whose id cannot be drawn as itself.
func ganttLegend(res *simulator.Result) string {
	var shared []string
	for _, j := range res.Jobs {
		if j.ID < 0 || j.ID > 9 {
			shared = append(shared, fmt.Sprintf("%c=%d", symbol(j.ID), j.ID))
		}
	}
	if len(shared) == 0 {
		return ""
	}
	return "Legend: " + strings.Join(shared, " ") + "\n"
}
