// pkg/transform/classify.go
package transform

import "github.com/sheetops/sheet-ingress/pkg/model"

// Classify partitions candidates into valid and invalid sets. A record is
// invalid iff its fatal-error list is non-empty; no validation logic is
// re-run here. Invalid records keep their errors so the caller can
// quarantine them with reasons.
func Classify(candidates []model.CandidateRecord) (valid, invalid []model.CandidateRecord) {
	valid = make([]model.CandidateRecord, 0, len(candidates))
	invalid = make([]model.CandidateRecord, 0)
	for _, record := range candidates {
		if record.Valid() {
			valid = append(valid, record)
		} else {
			invalid = append(invalid, record)
		}
	}
	return valid, invalid
}
