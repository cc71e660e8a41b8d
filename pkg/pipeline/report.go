// pkg/pipeline/report.go
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

// RunReport is the full audit trail of one run: the counters plus every
// attributable decision (warnings, fatal rejections, duplicate discards,
// per-record load failures). Nothing is dropped without an entry here.
type RunReport struct {
	Stats        *RunStatistics
	Warnings     []model.Issue
	Fatals       []model.Issue
	Duplicates   []model.DuplicateEntry
	LoadFailures []model.LoadFailure
}

// NewRunReport creates an empty report around fresh statistics.
func NewRunReport() *RunReport {
	return &RunReport{Stats: NewRunStatistics()}
}

// AddRecordIssues appends a record's warnings and fatal errors to the audit
// trail.
func (r *RunReport) AddRecordIssues(record model.CandidateRecord) {
	r.Warnings = append(r.Warnings, record.Warnings...)
	r.Fatals = append(r.Fatals, record.Fatals...)
}

// Render formats the report as a human-readable summary.
func (r *RunReport) Render() string {
	var sb strings.Builder

	sb.WriteString("=== Migration Run Report ===\n")
	sb.WriteString(fmt.Sprintf("Run ID:   %s\n", r.Stats.RunID))
	sb.WriteString(fmt.Sprintf("State:    %s\n", r.Stats.State))
	sb.WriteString(fmt.Sprintf("Duration: %s\n\n", r.Stats.Duration))

	for _, es := range r.Stats.Entities() {
		sb.WriteString(fmt.Sprintf("[%s]\n", es.Entity))
		sb.WriteString(fmt.Sprintf("  extracted:    %d\n", es.Extracted))
		sb.WriteString(fmt.Sprintf("  transformed:  %d\n", es.Transformed))
		sb.WriteString(fmt.Sprintf("  duplicates:   %d\n", es.Duplicates))
		sb.WriteString(fmt.Sprintf("  valid:        %d\n", es.Valid))
		sb.WriteString(fmt.Sprintf("  invalid:      %d\n", es.Invalid))
		sb.WriteString(fmt.Sprintf("  warnings:     %d\n", es.Warnings))
		sb.WriteString(fmt.Sprintf("  loaded:       %d\n", es.Loaded))
		if es.GeneratedIDs > 0 {
			sb.WriteString(fmt.Sprintf("  generated ids: %d\n", es.GeneratedIDs))
		}
		if es.LoadFailed > 0 {
			sb.WriteString(fmt.Sprintf("  load failed:  %d\n", es.LoadFailed))
		}
	}

	if len(r.Fatals) > 0 {
		sb.WriteString("\nRejected records:\n")
		for _, issue := range r.Fatals {
			sb.WriteString("  " + issue.String() + "\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, issue := range r.Warnings {
			sb.WriteString("  " + issue.String() + "\n")
		}
	}
	if len(r.Duplicates) > 0 {
		sb.WriteString("\nDuplicates discarded:\n")
		for _, dup := range r.Duplicates {
			sb.WriteString("  " + dup.String() + "\n")
		}
	}
	if len(r.LoadFailures) > 0 {
		sb.WriteString("\nLoad failures:\n")
		for _, f := range r.LoadFailures {
			sb.WriteString(fmt.Sprintf("  row %d: %s\n", f.RowIndex, f.Reason))
		}
	}

	return sb.String()
}
