// pkg/transform/transformer.go
package transform

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
	"github.com/sheetops/sheet-ingress/pkg/normalize"
)

// ErrHeaderMismatch indicates the source sheet's header row does not match
// the fixed column layout for the entity type. This is a configuration
// error detected once at pipeline start, never a per-row error.
var ErrHeaderMismatch = errors.New("header row does not match expected layout")

// Transformer applies an ordered rule set to raw rows, producing one
// candidate record per row. It never fails on row content: every normalizer
// outcome lands in the record's field slots, warnings, or fatals.
type Transformer struct {
	entity  model.EntityType
	rules   []normalize.Rule
	workers int
	logger  *zap.Logger
}

// NewTransformer creates a transformer for one entity type. workers bounds
// the parallel fan-out of All; values below 1 mean sequential.
func NewTransformer(entity model.EntityType, rules []normalize.Rule, workers int, logger *zap.Logger) (*Transformer, error) {
	if len(rules) == 0 {
		return nil, errors.New("rule set cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Transformer{
		entity:  entity,
		rules:   rules,
		workers: workers,
		logger:  logger.Named("transformer").With(zap.String("entity", string(entity))),
	}, nil
}

// CheckHeader validates the sheet's header row against the fixed layout.
// Comparison trims cells and ignores case; column order must match exactly.
func (t *Transformer) CheckHeader(headers []string) error {
	expected := model.ExpectedHeaders(t.entity)
	if len(headers) != len(expected) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrHeaderMismatch, len(headers), len(expected))
	}
	for i, want := range expected {
		got := strings.TrimSpace(headers[i])
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i+1, got, want)
		}
	}
	return nil
}

// Row transforms a single raw row into a candidate record. This is also the
// interactive single-record entry point: live validation runs the same rule
// set the batch pipeline does.
func (t *Transformer) Row(row model.RawRow) model.CandidateRecord {
	record := model.CandidateRecord{
		Entity:   t.entity,
		RowIndex: row.Index,
		Fields:   make(map[string]any, len(t.rules)),
	}

	for i, rule := range t.rules {
		outcome := rule.Apply(row.Cell(i), row.Index)
		record.Fields[rule.Field] = outcome.Value

		switch outcome.Status {
		case model.OutcomeWarning:
			record.Warnings = append(record.Warnings, model.Issue{
				RowIndex: row.Index,
				Field:    rule.Field,
				Reason:   outcome.Reason,
			})
			t.logger.Debug("Field defaulted",
				zap.Int("row", row.Index),
				zap.String("field", rule.Field),
				zap.String("reason", outcome.Reason))
		case model.OutcomeRejected:
			record.Fatals = append(record.Fatals, model.Issue{
				RowIndex: row.Index,
				Field:    rule.Field,
				Reason:   outcome.Reason,
			})
			t.logger.Debug("Field rejected",
				zap.Int("row", row.Index),
				zap.String("field", rule.Field),
				zap.String("reason", outcome.Reason))
		}
	}

	return record
}

// All transforms every raw row, preserving source order in the returned
// slice. When more than one worker is configured the map step fans out
// across rows and results are reassembled by index, so the deduplicator
// downstream still sees first-occurrence order.
func (t *Transformer) All(rows []model.RawRow) []model.CandidateRecord {
	records := make([]model.CandidateRecord, len(rows))

	if t.workers <= 1 || len(rows) < 2 {
		for i, row := range rows {
			records[i] = t.Row(row)
		}
		return records
	}

	workers := t.workers
	if workers > len(rows) {
		workers = len(rows)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				records[i] = t.Row(rows[i])
			}
		}()
	}
	for i := range rows {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	t.logger.Debug("Transformed rows",
		zap.Int("rows", len(rows)),
		zap.Int("workers", workers))

	return records
}
