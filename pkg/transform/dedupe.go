// pkg/transform/dedupe.go
package transform

import (
	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

// KeySpec names the fields a deduplication key can be derived from: the
// primary identifier, then a fallback business key (customer email). An
// empty Fallback means the entity has no fallback key.
type KeySpec struct {
	Primary  string
	Fallback string
}

// KeySpecFor returns the fixed key strategy for an entity type.
func KeySpecFor(entity model.EntityType) KeySpec {
	switch entity {
	case model.EntityCustomer:
		return KeySpec{Primary: model.FieldCustomerID, Fallback: model.FieldEmail}
	case model.EntityOrder:
		return KeySpec{Primary: model.FieldOrderID}
	default:
		return KeySpec{}
	}
}

// Deduplicate walks candidates in source order and keeps the first record
// seen for each identity. A surviving record registers both its primary
// identifier and its fallback key; a later record is a duplicate when
// either of its keys was already registered. Keys come only from normalized
// field values; records with no derivable key always pass through.
//
// First-seen-wins requires candidates in stable source row order, which the
// transformer guarantees.
func Deduplicate(candidates []model.CandidateRecord, spec KeySpec, logger *zap.Logger) ([]model.CandidateRecord, []model.DuplicateEntry) {
	unique := make([]model.CandidateRecord, 0, len(candidates))
	duplicates := make([]model.DuplicateEntry, 0)
	seen := make(map[string]int, len(candidates)*2)

	for _, record := range candidates {
		keys := recordKeys(record, spec)
		if len(keys) == 0 {
			unique = append(unique, record)
			continue
		}

		collided := ""
		original := 0
		for _, key := range keys {
			if row, ok := seen[key]; ok {
				collided = key
				original = row
				break
			}
		}

		if collided != "" {
			duplicates = append(duplicates, model.DuplicateEntry{
				RowIndex:    record.RowIndex,
				Key:         collided,
				OriginalRow: original,
			})
			if logger != nil {
				logger.Debug("Discarded duplicate",
					zap.Int("row", record.RowIndex),
					zap.String("key", collided),
					zap.Int("originalRow", original))
			}
			continue
		}

		for _, key := range keys {
			seen[key] = record.RowIndex
		}
		unique = append(unique, record)
	}

	return unique, duplicates
}

// recordKeys derives the identity keys for one record. Keys are namespaced
// by field name so identifier and email values can never collide with each
// other. Only normalized values form keys: a rejected field holds the raw
// audit value in its slot and makes no identity claim.
func recordKeys(record model.CandidateRecord, spec KeySpec) []string {
	keys := make([]string, 0, 2)
	for _, field := range []string{spec.Primary, spec.Fallback} {
		if field == "" || fieldRejected(record, field) {
			continue
		}
		if v := record.StringField(field); v != "" {
			keys = append(keys, field+":"+v)
		}
	}
	return keys
}

func fieldRejected(record model.CandidateRecord, field string) bool {
	for _, issue := range record.Fatals {
		if issue.Field == field {
			return true
		}
	}
	return false
}
