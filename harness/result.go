// Package harness runs timed JSONB update loops and records table size
// samples along the way.
package harness

// TableSize holds the on-disk footprint of one table in bytes.
type TableSize struct {
	TotalSize int64 `json:"total_size"`
	MainSize  int64 `json:"main_size"`
	ToastSize int64 `json:"toast_size"`
}

// NewTableSize derives the out-of-line (TOAST) size from the total and
// main relation sizes.
func NewTableSize(total, main int64) TableSize {
	return TableSize{
		TotalSize: total,
		MainSize:  main,
		ToastSize: total - main,
	}
}

// TableSizes is one measurement of both benchmark tables.
type TableSizes struct {
	Large TableSize `json:"large"`
	Small TableSize `json:"small"`
}

// Sample ties a size measurement to the number of updates applied so far.
type Sample struct {
	UpdateCount int `json:"updateCount"`
	TableSizes
}

// RunResult is the outcome of a single timed loop.
type RunResult struct {
	Description string   `json:"description"`
	Sizes       []Sample `json:"sizes"`
}

// FinalCount returns the update counter of the last sample, or 0 for an
// empty result.
func (r *RunResult) FinalCount() int {
	if r == nil || len(r.Sizes) == 0 {
		return 0
	}

	return r.Sizes[len(r.Sizes)-1].UpdateCount
}

// Results combines both loops into the payload embedded in the report.
type Results struct {
	LargeUpdates *RunResult `json:"largeUpdates"`
	SmallUpdates *RunResult `json:"smallUpdates"`
}
