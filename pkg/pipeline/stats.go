// pkg/pipeline/stats.go
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

// EntityStats tracks counters for one entity type across the run.
type EntityStats struct {
	Entity       model.EntityType
	Extracted    int
	Transformed  int
	Duplicates   int
	Valid        int
	Invalid      int
	Warnings     int
	Loaded       int
	LoadFailed   int
	GeneratedIDs int
	Quarantined  int
}

// RunStatistics accumulates counters across the whole batch. It is created
// at pipeline start, mutated only at stage boundaries by the orchestrator,
// and finalized when the run reaches a terminal state.
type RunStatistics struct {
	RunID     string
	State     State
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	entities map[model.EntityType]*EntityStats
	order    []model.EntityType
}

// NewRunStatistics initializes statistics for a fresh run.
func NewRunStatistics() *RunStatistics {
	return &RunStatistics{
		RunID:     uuid.New().String(),
		State:     StateIdle,
		StartTime: time.Now(),
		entities:  make(map[model.EntityType]*EntityStats),
	}
}

// Entity returns the counter block for an entity type, creating it on first
// use. Entity blocks are reported in first-touch order.
func (s *RunStatistics) Entity(entity model.EntityType) *EntityStats {
	if es, ok := s.entities[entity]; ok {
		return es
	}
	es := &EntityStats{Entity: entity}
	s.entities[entity] = es
	s.order = append(s.order, entity)
	return es
}

// Entities returns per-entity counters in processing order.
func (s *RunStatistics) Entities() []*EntityStats {
	out := make([]*EntityStats, 0, len(s.order))
	for _, entity := range s.order {
		out = append(out, s.entities[entity])
	}
	return out
}

// Complete finalizes the run with its terminal state and duration.
func (s *RunStatistics) Complete(state State) {
	s.State = state
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// TotalExtracted sums extracted rows across entities.
func (s *RunStatistics) TotalExtracted() int { return s.total(func(e *EntityStats) int { return e.Extracted }) }

// TotalValid sums valid records across entities.
func (s *RunStatistics) TotalValid() int { return s.total(func(e *EntityStats) int { return e.Valid }) }

// TotalInvalid sums invalid records across entities.
func (s *RunStatistics) TotalInvalid() int { return s.total(func(e *EntityStats) int { return e.Invalid }) }

// TotalDuplicates sums discarded duplicates across entities.
func (s *RunStatistics) TotalDuplicates() int {
	return s.total(func(e *EntityStats) int { return e.Duplicates })
}

// TotalWarnings sums field warnings across entities.
func (s *RunStatistics) TotalWarnings() int { return s.total(func(e *EntityStats) int { return e.Warnings }) }

// TotalLoaded sums persisted records across entities.
func (s *RunStatistics) TotalLoaded() int { return s.total(func(e *EntityStats) int { return e.Loaded }) }

func (s *RunStatistics) total(get func(*EntityStats) int) int {
	sum := 0
	for _, es := range s.entities {
		sum += get(es)
	}
	return sum
}
