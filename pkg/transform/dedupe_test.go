package transform

import (
	"testing"

	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

func customerCandidate(row int, id, email string) model.CandidateRecord {
	fields := map[string]any{}
	if id != "" {
		fields[model.FieldCustomerID] = id
	}
	if email != "" {
		fields[model.FieldEmail] = email
	}
	return model.CandidateRecord{Entity: model.EntityCustomer, RowIndex: row, Fields: fields}
}

func TestDeduplicate_FirstSeenWins(t *testing.T) {
	candidates := []model.CandidateRecord{
		customerCandidate(2, "C001", ""),
		customerCandidate(3, "C001", ""),
		customerCandidate(4, "C002", ""),
	}

	unique, duplicates := Deduplicate(candidates, KeySpecFor(model.EntityCustomer), zap.NewNop())

	if len(unique) != 2 || unique[0].RowIndex != 2 || unique[1].RowIndex != 4 {
		t.Fatalf("unique rows = %v, want [2 4]", rowIndexes(unique))
	}
	if len(duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(duplicates))
	}
	d := duplicates[0]
	if d.RowIndex != 3 || d.OriginalRow != 2 {
		t.Errorf("duplicate entry = row %d original %d, want row 3 original 2", d.RowIndex, d.OriginalRow)
	}
	if d.Key != "customer_id:C001" {
		t.Errorf("duplicate key = %q, want customer_id:C001", d.Key)
	}
}

// A record with an identifier also registers its email, so a later record
// matching on email alone is still the same entity.
func TestDeduplicate_EmailFallbackMatchesIdentifiedRecord(t *testing.T) {
	candidates := []model.CandidateRecord{
		customerCandidate(2, "C001", "j@e.com"),
		customerCandidate(3, "", "j@e.com"),
	}

	unique, duplicates := Deduplicate(candidates, KeySpecFor(model.EntityCustomer), zap.NewNop())

	if len(unique) != 1 || unique[0].RowIndex != 2 {
		t.Fatalf("unique rows = %v, want [2]", rowIndexes(unique))
	}
	if len(duplicates) != 1 || duplicates[0].Key != "email:j@e.com" {
		t.Fatalf("duplicates = %v, want one email collision", duplicates)
	}
}

func TestDeduplicate_DistinctEmailsSurvive(t *testing.T) {
	candidates := []model.CandidateRecord{
		customerCandidate(2, "C001", "a@e.com"),
		customerCandidate(3, "", "b@e.com"),
	}

	unique, duplicates := Deduplicate(candidates, KeySpecFor(model.EntityCustomer), zap.NewNop())
	if len(unique) != 2 || len(duplicates) != 0 {
		t.Errorf("unique = %v duplicates = %v, want both records to survive", rowIndexes(unique), duplicates)
	}
}

// Records with neither key make no identity claim and always pass through.
func TestDeduplicate_KeylessRecordsPassThrough(t *testing.T) {
	candidates := []model.CandidateRecord{
		customerCandidate(2, "", ""),
		customerCandidate(3, "", ""),
		customerCandidate(4, "", ""),
	}

	unique, duplicates := Deduplicate(candidates, KeySpecFor(model.EntityCustomer), zap.NewNop())
	if len(unique) != 3 || len(duplicates) != 0 {
		t.Errorf("unique = %d duplicates = %d, want all 3 keyless records kept", len(unique), len(duplicates))
	}
}

func TestDeduplicate_OrdersHaveNoFallback(t *testing.T) {
	spec := KeySpecFor(model.EntityOrder)
	if spec.Primary != model.FieldOrderID || spec.Fallback != "" {
		t.Fatalf("order key spec = %+v", spec)
	}

	candidates := []model.CandidateRecord{
		{Entity: model.EntityOrder, RowIndex: 2, Fields: map[string]any{model.FieldOrderID: "ORD001"}},
		{Entity: model.EntityOrder, RowIndex: 3, Fields: map[string]any{model.FieldOrderID: "ORD001"}},
		{Entity: model.EntityOrder, RowIndex: 4, Fields: map[string]any{}},
	}

	unique, duplicates := Deduplicate(candidates, spec, zap.NewNop())
	if len(unique) != 2 || len(duplicates) != 1 {
		t.Errorf("unique = %d duplicates = %d, want 2/1", len(unique), len(duplicates))
	}
}

// A rejected field keeps the offending raw value in its slot for audit;
// that value must never act as an identity key, so distinct invalid records
// sharing the same raw garbage both pass through to quarantine.
func TestDeduplicate_RejectedFieldsFormNoKeys(t *testing.T) {
	tr := newCustomerTransformer(t, 1)
	candidates := tr.All([]model.RawRow{
		{Index: 2, Cells: []string{"", "Alice Adams", "not-an-email", "", "", "", "2023-01-15", ""}},
		{Index: 3, Cells: []string{"", "Bob Brown", "not-an-email", "", "", "", "2023-01-15", ""}},
	})
	for _, record := range candidates {
		if record.Valid() {
			t.Fatalf("row %d unexpectedly valid", record.RowIndex)
		}
	}

	unique, duplicates := Deduplicate(candidates, KeySpecFor(model.EntityCustomer), zap.NewNop())

	if len(duplicates) != 0 {
		t.Fatalf("duplicates = %+v, want none for rejected email values", duplicates)
	}
	if len(unique) != 2 {
		t.Fatalf("unique rows = %v, want both invalid records kept", rowIndexes(unique))
	}
}

// A rejected identifier makes no key, but a normalized email on the same
// record still does.
func TestDeduplicate_RejectedIdentifierStillMatchesOnEmail(t *testing.T) {
	first := customerCandidate(2, "C001", "j@e.com")
	second := customerCandidate(3, "", "j@e.com")
	second.Fields[model.FieldCustomerID] = "CABC"
	second.Fatals = append(second.Fatals, model.Issue{RowIndex: 3, Field: model.FieldCustomerID, Reason: "customer_id \"CABC\" does not normalize to C-prefixed numeric identifier"})

	unique, duplicates := Deduplicate([]model.CandidateRecord{first, second}, KeySpecFor(model.EntityCustomer), zap.NewNop())
	if len(unique) != 1 || len(duplicates) != 1 || duplicates[0].Key != "email:j@e.com" {
		t.Errorf("unique = %v duplicates = %+v, want email collision only", rowIndexes(unique), duplicates)
	}
}

func rowIndexes(records []model.CandidateRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.RowIndex
	}
	return out
}
