package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const textbookCSV = `id,arrival,run,priority
0,0,8,3
1,1,4,1
2,2,9,4
3,3,5,2
`

func writeWorkload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write workload: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestRunCommand_Text(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)

	out, err := runCLI(t, "run", path, "--scheme", "psjf", "--gantt")
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, out)
	}
	for _, want := range []string{
		"Workload:   textbook (4 jobs)",
		"Discipline: PSJF",
		"Average waiting time:    6.50",
		"core 0 |01111333330000000222222222|",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)

	out, err := runCLI(t, "run", path, "-s", "rr", "-q", "4", "-o", "json")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var res struct {
		Discipline     string  `json:"discipline"`
		Quantum        int     `json:"quantum"`
		AverageWaiting float64 `json:"average_waiting"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.Discipline != "RR" || res.Quantum != 4 || res.AverageWaiting != 11.75 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunCommand_ConfigFile(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)
	cfgPath := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(cfgPath, []byte("cores: 2\nscheme: fcfs\noutput: yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "run", path, "--config", cfgPath)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out, "cores: 2") || !strings.Contains(out, "average_waiting: 2") {
		t.Errorf("unexpected YAML output:\n%s", out)
	}

	// Flags win over the file.
	out, err = runCLI(t, "run", path, "--config", cfgPath, "--cores", "1", "--output", "text")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out, "Cores:      1") {
		t.Errorf("flag did not override config file:\n%s", out)
	}
}

func TestRunCommand_Errors(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)
	bad := writeWorkload(t, "bad.csv", "arrival,run\n0,0\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"run"}},
		{"unknown scheme", []string{"run", path, "--scheme", "lottery"}},
		{"zero cores", []string{"run", path, "--cores", "0"}},
		{"rr without quantum", []string{"run", path, "--scheme", "rr", "--quantum", "0"}},
		{"bad output", []string{"run", path, "--output", "xml"}},
		{"missing file", []string{"run", filepath.Join(t.TempDir(), "nope.csv")}},
		{"unsupported extension", []string{"run", writeWorkload(t, "jobs.txt", "")}},
		{"invalid workload", []string{"run", bad}},
		{"bad log format", []string{"--log-format", "xml", "run", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCompareCommand(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)

	out, err := runCLI(t, "compare", path, "--quantum", "4")
	if err != nil {
		t.Fatalf("compare error: %v", err)
	}
	for _, scheme := range []string{"FCFS", "SJF", "PSJF", "PRI", "PPRI", "RR"} {
		if !strings.Contains(out, "\n"+scheme+" ") {
			t.Errorf("comparison missing %s:\n%s", scheme, out)
		}
	}
	if !strings.Contains(out, "lowest average waiting time") {
		t.Errorf("missing footnote:\n%s", out)
	}
}

func TestCompareCommand_JSON(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)

	out, err := runCLI(t, "compare", path, "-o", "json")
	if err != nil {
		t.Fatalf("compare error: %v", err)
	}
	var results []map[string]any
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(results) != 6 {
		t.Errorf("len(results) = %d, want 6", len(results))
	}
}

func TestCompareCommand_ZeroQuantum(t *testing.T) {
	path := writeWorkload(t, "textbook.csv", textbookCSV)
	if _, err := runCLI(t, "compare", path, "--quantum", "0"); err == nil {
		t.Error("expected error")
	}
}

func TestSchemesCommand(t *testing.T) {
	out, err := runCLI(t, "schemes")
	if err != nil {
		t.Fatalf("schemes error: %v", err)
	}
	if !strings.Contains(out, "PPRI    yes") || !strings.Contains(out, "FCFS    no") {
		t.Errorf("unexpected schemes output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "gosched "+Version) {
		t.Errorf("version output = %q", out)
	}
}
