package processors

import (
	"github.com/username/idxflow/backend/src/models"
)

// StateIndex maps entity code -> set of dates already present in that
// entity's output artifact. It is a best-effort snapshot taken at run start
// and is not updated by the run's own writes.
type StateIndex map[string]map[string]struct{}

func (idx StateIndex) Has(entity, date string) bool {
	dates, ok := idx[entity]
	if !ok {
		return false
	}
	_, ok = dates[date]
	return ok
}

func (idx StateIndex) Add(entity, date string) {
	dates, ok := idx[entity]
	if !ok {
		dates = make(map[string]struct{})
		idx[entity] = dates
	}
	dates[date] = struct{}{}
}

// Calculator is one aggregation kind: it knows which entities a tick
// contributes to and how to reduce a day's ticks into per-entity rows.
type Calculator interface {
	// Kind is the stable identifier used by the trigger surface.
	Kind() string
	// OutputPrefix is the blob folder holding this kind's per-entity artifacts.
	OutputPrefix() string
	// Header is the fixed artifact header row (comma-delimited, date first).
	Header() string
	// Entities returns the entity codes a record contributes to, empty when
	// the record is out of scope for this kind.
	Entities(rec models.TickRecord) []string
	// Aggregate groups records by (entity, date), discarding pairs already
	// in idx, and reduces each group to one row. Each entity's rows are
	// sorted by date descending. Pure in-memory transform.
	Aggregate(recs []models.TickRecord, idx StateIndex) map[string][]models.AggregateRow
}
