package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
	"github.com/sheetops/sheet-ingress/pkg/transform"
)

type fakeSource struct {
	sheets map[model.EntityType]model.Sheet
	err    error
}

func (s *fakeSource) FetchRows(_ context.Context, entity model.EntityType) (model.Sheet, error) {
	if s.err != nil {
		return model.Sheet{}, s.err
	}
	return s.sheets[entity], nil
}

type fakeSink struct {
	loaded      map[model.EntityType][]model.CandidateRecord
	quarantined map[model.EntityType][]model.CandidateRecord
	loadErr     error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		loaded:      make(map[model.EntityType][]model.CandidateRecord),
		quarantined: make(map[model.EntityType][]model.CandidateRecord),
	}
}

func (s *fakeSink) Load(_ context.Context, entity model.EntityType, records []model.CandidateRecord) (model.LoadSummary, error) {
	if s.loadErr != nil {
		return model.LoadSummary{}, s.loadErr
	}
	s.loaded[entity] = append(s.loaded[entity], records...)
	return model.LoadSummary{Loaded: len(records)}, nil
}

func (s *fakeSink) Quarantine(_ context.Context, entity model.EntityType, records []model.CandidateRecord) error {
	s.quarantined[entity] = append(s.quarantined[entity], records...)
	return nil
}

func testSheets() map[model.EntityType]model.Sheet {
	return map[model.EntityType]model.Sheet{
		model.EntityCustomer: {
			Headers: model.CustomerHeaders,
			Rows: []model.RawRow{
				{Index: 2, Cells: []string{"c001", "John", "J@E.com", "", "", "", "2023-01-15", ""}},
				{Index: 3, Cells: []string{"", "Dup", "j@e.com", "", "", "", "2023-01-15", ""}},
				{Index: 4, Cells: []string{"", "Broken", "not-an-email", "", "", "", "2023-01-15", ""}},
			},
		},
		model.EntityOrder: {
			Headers: model.OrderHeaders,
			Rows: []model.RawRow{
				{Index: 2, Cells: []string{"ord1", "c001", "Widget", "2", "$9.99", "2023-02-01", "shipped"}},
				{Index: 3, Cells: []string{"ORD002", "C999", "Gadget", "1", "5", "2023-02-01", ""}},
			},
		},
	}
}

func newPipeline(t *testing.T, src Source, snk Sink) *Pipeline {
	t.Helper()
	p, err := New(src, snk, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	snk := newFakeSink()
	p := newPipeline(t, &fakeSource{sheets: testSheets()}, snk)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.State() != StateDone {
		t.Fatalf("state = %s, want done", p.State())
	}

	cs := report.Stats.Entity(model.EntityCustomer)
	if cs.Extracted != 3 || cs.Transformed != 3 {
		t.Errorf("customer extracted/transformed = %d/%d, want 3/3", cs.Extracted, cs.Transformed)
	}
	// Row 3 deduplicates against row 2 on normalized email.
	if cs.Duplicates != 1 {
		t.Errorf("customer duplicates = %d, want 1", cs.Duplicates)
	}
	if cs.Valid != 1 || cs.Invalid != 1 {
		t.Errorf("customer valid/invalid = %d/%d, want 1/1", cs.Valid, cs.Invalid)
	}

	loadedCustomers := snk.loaded[model.EntityCustomer]
	if len(loadedCustomers) != 1 || loadedCustomers[0].Fields[model.FieldCustomerID] != "C001" {
		t.Fatalf("loaded customers = %+v, want exactly C001", loadedCustomers)
	}

	os := report.Stats.Entity(model.EntityOrder)
	if os.Valid != 1 || os.Invalid != 1 {
		t.Errorf("order valid/invalid = %d/%d, want 1/1", os.Valid, os.Invalid)
	}
	loadedOrders := snk.loaded[model.EntityOrder]
	if len(loadedOrders) != 1 || loadedOrders[0].Fields[model.FieldOrderID] != "ORD1" {
		t.Fatalf("loaded orders = %+v, want exactly ORD1", loadedOrders)
	}

	// The unknown-customer order lands in quarantine with its reason.
	quarantined := snk.quarantined[model.EntityOrder]
	if len(quarantined) != 1 || quarantined[0].RowIndex != 3 {
		t.Fatalf("quarantined orders = %+v, want row 3", quarantined)
	}
	if len(quarantined[0].Fatals) == 0 {
		t.Error("quarantined order lost its fatal reasons")
	}

	// The duplicate log preserves the discarded row's original index.
	if len(report.Duplicates) != 1 {
		t.Fatalf("duplicate log = %+v, want one entry", report.Duplicates)
	}
	if d := report.Duplicates[0]; d.RowIndex != 3 || d.OriginalRow != 2 {
		t.Errorf("duplicate entry = row %d original %d, want 3/2", d.RowIndex, d.OriginalRow)
	}
}

func TestRun_HeaderMismatchFailsRun(t *testing.T) {
	sheets := testSheets()
	sheet := sheets[model.EntityCustomer]
	sheet.Headers = []string{"ID", "Full Name"}
	sheets[model.EntityCustomer] = sheet

	p := newPipeline(t, &fakeSource{sheets: sheets}, newFakeSink())

	_, err := p.Run(context.Background())
	if !errors.Is(err, transform.ErrHeaderMismatch) {
		t.Fatalf("err = %v, want ErrHeaderMismatch", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %s, want failed", p.State())
	}
}

func TestRun_SourceFailure(t *testing.T) {
	srcErr := errors.New("sheet service unavailable")
	p := newPipeline(t, &fakeSource{err: srcErr}, newFakeSink())

	report, err := p.Run(context.Background())
	if !errors.Is(err, srcErr) {
		t.Fatalf("err = %v, want wrapped source error", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %s, want failed", p.State())
	}
	if report == nil || report.Stats.State != StateFailed {
		t.Error("report missing or not finalized as failed")
	}
}

func TestRun_SinkFailure(t *testing.T) {
	snk := newFakeSink()
	snk.loadErr = errors.New("connection reset")
	p := newPipeline(t, &fakeSource{sheets: testSheets()}, snk)

	_, err := p.Run(context.Background())
	if !errors.Is(err, snk.loadErr) {
		t.Fatalf("err = %v, want wrapped sink error", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %s, want failed", p.State())
	}
}

// Cancellation between stages returns the statistics accumulated so far.
func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, &fakeSource{sheets: testSheets()}, newFakeSink())

	report, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", p.State())
	}
	if report.Stats.State != StateCancelled {
		t.Errorf("stats state = %s, want cancelled", report.Stats.State)
	}
	// Extraction completed before the cancellation point.
	if report.Stats.TotalExtracted() != 5 {
		t.Errorf("extracted = %d, want 5", report.Stats.TotalExtracted())
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, newFakeSink(), 1, zap.NewNop()); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := New(&fakeSource{}, nil, 1, zap.NewNop()); err == nil {
		t.Error("expected error for nil sink")
	}
	if _, err := New(&fakeSource{}, newFakeSink(), 1, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}
