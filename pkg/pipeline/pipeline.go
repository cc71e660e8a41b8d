// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
	"github.com/sheetops/sheet-ingress/pkg/normalize"
	"github.com/sheetops/sheet-ingress/pkg/transform"
)

// Source yields the header row and ordered data rows for one entity type.
// The pipeline assumes column order matches the fixed rule order; a header
// mismatch fails the run before any row is processed.
type Source interface {
	FetchRows(ctx context.Context, entity model.EntityType) (model.Sheet, error)
}

// Sink persists batches of candidate records. Load upserts the valid set
// keyed by primary identifier and reports per-record success/failure;
// Quarantine sets invalid records aside with their reasons. Referential
// integrity is checked twice: at transform time against the valid
// customer set, and again by the sink's foreign-key constraint.
type Sink interface {
	Load(ctx context.Context, entity model.EntityType, records []model.CandidateRecord) (model.LoadSummary, error)
	Quarantine(ctx context.Context, entity model.EntityType, records []model.CandidateRecord) error
}

// State is the pipeline's lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// entityOrder fixes dependency order: customers carry the identifier set
// that order foreign-key validation checks against, so they go first.
var entityOrder = []model.EntityType{model.EntityCustomer, model.EntityOrder}

// Pipeline sequences extract, transform/deduplicate/classify, and load over
// a full batch, accumulating run statistics at stage boundaries. Field
// normalizer failures never abort the run; source and sink failures do.
type Pipeline struct {
	source  Source
	sink    Sink
	workers int
	logger  *zap.Logger

	mu    sync.RWMutex
	state State
}

// New creates a pipeline around a source and sink. workers bounds the
// parallel transform fan-out per entity.
func New(source Source, sink Sink, workers int, logger *zap.Logger) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("source cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("sink cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Pipeline{
		source:  source,
		sink:    sink,
		workers: workers,
		logger:  logger.Named("pipeline"),
		state:   StateIdle,
	}, nil
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	prev := p.state
	p.state = state
	p.mu.Unlock()
	if prev != state {
		p.logger.Info("Pipeline state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(state)))
	}
}

// classified holds one entity's transform output awaiting the load stage.
type classified struct {
	valid   []model.CandidateRecord
	invalid []model.CandidateRecord
}

// Run executes the full batch. It always returns a report with the
// statistics accumulated so far; the error is non-nil when the run ended in
// Failed or Cancelled. Cancellation is honored between stages, not mid-row.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := NewRunReport()
	stats := report.Stats

	p.logger.Info("Starting migration run", zap.String("runID", stats.RunID))

	// Extract all rows for every entity type up front.
	p.setState(StateExtracting)
	sheets := make(map[model.EntityType]model.Sheet, len(entityOrder))
	for _, entity := range entityOrder {
		sheet, err := p.source.FetchRows(ctx, entity)
		if err != nil {
			return p.fail(report, fmt.Errorf("extracting %s rows: %w", entity, err))
		}
		sheets[entity] = sheet
		stats.Entity(entity).Extracted = len(sheet.Rows)
		p.logger.Info("Extracted rows",
			zap.String("entity", string(entity)),
			zap.Int("rows", len(sheet.Rows)))
	}

	if err := ctx.Err(); err != nil {
		return p.cancel(report, err)
	}

	// Transform, deduplicate, and classify each entity in dependency order.
	p.setState(StateTransforming)
	results := make(map[model.EntityType]classified, len(entityOrder))
	var knownCustomer func(string) bool

	for _, entity := range entityOrder {
		rules := normalize.RulesFor(entity, knownCustomer)
		transformer, err := transform.NewTransformer(entity, rules, p.workers, p.logger)
		if err != nil {
			return p.fail(report, err)
		}
		if err := transformer.CheckHeader(sheets[entity].Headers); err != nil {
			return p.fail(report, fmt.Errorf("%s sheet: %w", entity, err))
		}

		es := stats.Entity(entity)

		candidates := transformer.All(sheets[entity].Rows)
		es.Transformed = len(candidates)
		for _, record := range candidates {
			es.Warnings += len(record.Warnings)
		}

		unique, duplicates := transform.Deduplicate(candidates, transform.KeySpecFor(entity), p.logger)
		es.Duplicates = len(duplicates)
		report.Duplicates = append(report.Duplicates, duplicates...)

		valid, invalid := transform.Classify(unique)
		es.Valid = len(valid)
		es.Invalid = len(invalid)
		for _, record := range candidates {
			report.AddRecordIssues(record)
		}
		results[entity] = classified{valid: valid, invalid: invalid}

		if entity == model.EntityCustomer {
			knownCustomer = identifierSet(valid, model.FieldCustomerID)
		}

		p.logger.Info("Transformed entity",
			zap.String("entity", string(entity)),
			zap.Int("candidates", len(candidates)),
			zap.Int("duplicates", len(duplicates)),
			zap.Int("valid", len(valid)),
			zap.Int("invalid", len(invalid)))
	}

	if err := ctx.Err(); err != nil {
		return p.cancel(report, err)
	}

	// Hand valid records to the sink; quarantine the rest.
	p.setState(StateLoading)
	for _, entity := range entityOrder {
		es := stats.Entity(entity)
		result := results[entity]

		summary, err := p.sink.Load(ctx, entity, result.valid)
		if err != nil {
			return p.fail(report, fmt.Errorf("loading %s records: %w", entity, err))
		}
		es.Loaded = summary.Loaded
		es.GeneratedIDs = summary.GeneratedIDs
		es.LoadFailed = len(summary.Failures)
		report.LoadFailures = append(report.LoadFailures, summary.Failures...)

		if err := p.sink.Quarantine(ctx, entity, result.invalid); err != nil {
			return p.fail(report, fmt.Errorf("quarantining %s records: %w", entity, err))
		}
		es.Quarantined = len(result.invalid)
	}

	p.setState(StateDone)
	stats.Complete(StateDone)

	p.logger.Info("Migration run completed",
		zap.String("runID", stats.RunID),
		zap.Int("extracted", stats.TotalExtracted()),
		zap.Int("valid", stats.TotalValid()),
		zap.Int("invalid", stats.TotalInvalid()),
		zap.Int("duplicates", stats.TotalDuplicates()),
		zap.Int("warnings", stats.TotalWarnings()),
		zap.Int("loaded", stats.TotalLoaded()),
		zap.Duration("duration", stats.Duration))

	return report, nil
}

// fail moves the pipeline to its Failed terminal, preserving partial
// progress in the returned report.
func (p *Pipeline) fail(report *RunReport, err error) (*RunReport, error) {
	p.setState(StateFailed)
	report.Stats.Complete(StateFailed)
	p.logger.Error("Migration run failed",
		zap.String("runID", report.Stats.RunID),
		zap.Error(err))
	return report, err
}

// cancel moves the pipeline to its Cancelled terminal with the statistics
// accumulated so far.
func (p *Pipeline) cancel(report *RunReport, err error) (*RunReport, error) {
	p.setState(StateCancelled)
	report.Stats.Complete(StateCancelled)
	p.logger.Warn("Migration run cancelled",
		zap.String("runID", report.Stats.RunID),
		zap.Error(err))
	return report, err
}

// identifierSet builds a membership check over the non-null values of one
// field across a record set.
func identifierSet(records []model.CandidateRecord, field string) func(string) bool {
	set := make(map[string]struct{}, len(records))
	for _, record := range records {
		if v := record.StringField(field); v != "" {
			set[v] = struct{}{}
		}
	}
	return func(id string) bool {
		_, ok := set[id]
		return ok
	}
}
