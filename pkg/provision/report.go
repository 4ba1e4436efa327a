package provision

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provisio-sh/provisio/pkg/errors"
)

// Summary aggregates a run's records for the final report and the exit
// status decision.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Summarize counts record outcomes.
func Summarize(records []ExecutionRecord) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusSkipped, StatusDryRun:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}

// Clean reports whether the run had no failures of any kind.
func (s Summary) Clean() bool {
	return s.Failed == 0
}

// reportEntry is the serialized form of an ExecutionRecord. Errors become
// strings so the report stays loadable by anything that reads YAML.
type reportEntry struct {
	Step     string        `yaml:"step"`
	Status   Status        `yaml:"status"`
	Attempts int           `yaml:"attempts"`
	Error    string        `yaml:"error,omitempty"`
	Reason   string        `yaml:"reason,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

type report struct {
	Variant   string        `yaml:"variant"`
	Principal string        `yaml:"principal"`
	Steps     []reportEntry `yaml:"steps"`
	Succeeded int           `yaml:"succeeded"`
	Skipped   int           `yaml:"skipped"`
	Failed    int           `yaml:"failed"`
}

// WriteReport persists the run outcome as YAML so an auditor can
// reconstruct what happened without re-running.
func WriteReport(path string, rc *RunContext, records []ExecutionRecord) error {
	entries := make([]reportEntry, 0, len(records))
	for _, r := range records {
		entry := reportEntry{
			Step:     r.Step,
			Status:   r.Status,
			Attempts: r.Attempts,
			Reason:   r.Reason,
			Duration: r.Duration,
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		entries = append(entries, entry)
	}

	summary := Summarize(records)
	doc := report{
		Variant:   rc.Variant.String(),
		Principal: rc.Principal.Username,
		Steps:     entries,
		Succeeded: summary.Succeeded,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot marshal run report")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot write run report to %s", path)
	}
	return nil
}
