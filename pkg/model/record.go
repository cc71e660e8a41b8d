// pkg/model/record.go
package model

import "fmt"

// RawRow is one spreadsheet row as delivered by a source adapter.
// Index is the spreadsheet row number (header row is 1, first data row is 2)
// and is carried through the whole pipeline for error attribution.
type RawRow struct {
	Index int
	Cells []string
}

// Cell returns the cell at position i, or "" when the row is short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Sheet is the full payload a source adapter yields for one entity type.
type Sheet struct {
	Headers []string
	Rows    []RawRow
}

// OutcomeStatus classifies the result of applying one field rule.
type OutcomeStatus int

const (
	// OutcomeAccepted means the value was accepted as-is or after normalization.
	OutcomeAccepted OutcomeStatus = iota
	// OutcomeWarning means a default or null was substituted; the record survives.
	OutcomeWarning
	// OutcomeRejected means a fatal failure; the record cannot be persisted.
	OutcomeRejected
)

// String returns a human-readable status name.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeWarning:
		return "warning"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// FieldOutcome is the result of one field rule applied to one raw cell.
// Value holds the normalized value on acceptance, the substituted default on
// a warning, and the offending raw input on rejection (kept for audit).
type FieldOutcome struct {
	Status OutcomeStatus
	Value  any
	Reason string
}

// Accepted builds an outcome for a value accepted as-is or after normalization.
func Accepted(value any) FieldOutcome {
	return FieldOutcome{Status: OutcomeAccepted, Value: value}
}

// Warned builds an outcome for a substituted value with a non-fatal reason.
func Warned(value any, reason string) FieldOutcome {
	return FieldOutcome{Status: OutcomeWarning, Value: value, Reason: reason}
}

// Rejected builds an outcome for a fatal field failure.
func Rejected(value any, reason string) FieldOutcome {
	return FieldOutcome{Status: OutcomeRejected, Value: value, Reason: reason}
}

// Issue is one attributable decision in the audit trail: which row, which
// field, and why. Reasons always name the field and the offending raw value
// or its absence.
type Issue struct {
	RowIndex int
	Field    string
	Reason   string
}

// String formats the issue for report output.
func (i Issue) String() string {
	return fmt.Sprintf("row %d, field %s: %s", i.RowIndex, i.Field, i.Reason)
}

// CandidateRecord is one row's fully-normalized-but-not-yet-persisted
// representation: one slot per target field plus every warning and fatal
// error collected while transforming it. Exactly one candidate exists per
// raw row; rows are never silently dropped at transform time.
type CandidateRecord struct {
	Entity   EntityType
	RowIndex int
	Fields   map[string]any
	Warnings []Issue
	Fatals   []Issue
}

// Valid reports whether the record has no fatal errors. This is the single
// source of truth for the validation verdict.
func (r *CandidateRecord) Valid() bool {
	return len(r.Fatals) == 0
}

// StringField returns the named field as a string, or "" when the slot is
// nil or holds a non-string value.
func (r *CandidateRecord) StringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// DuplicateEntry records one discarded duplicate: the row that was dropped,
// the key it collided on, and the row of the surviving original.
type DuplicateEntry struct {
	RowIndex    int
	Key         string
	OriginalRow int
}

// String formats the entry for report output.
func (d DuplicateEntry) String() string {
	return fmt.Sprintf("row %d duplicates row %d (key %s)", d.RowIndex, d.OriginalRow, d.Key)
}

// LoadFailure records one record the sink could not persist.
type LoadFailure struct {
	RowIndex int
	Reason   string
}

// LoadSummary reports per-record persistence results for one batch.
type LoadSummary struct {
	Loaded       int
	GeneratedIDs int
	Failures     []LoadFailure
}
