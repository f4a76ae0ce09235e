package models

// Snapshot progress states.
const (
	ResultQueued     = "queued"
	ResultProcessing = "processing"
	ResultComplete   = "complete"
	ResultFailed     = "failed"
)

// SnapshotResult tracks the progress of a running dump.
type SnapshotResult struct {
	SnapshotID string `json:"snapshot_id"`
	Percent    int    `json:"percent"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	Status     string `json:"status"`
}

// NewSnapshotResult starts tracking a dump of total tables.
func NewSnapshotResult(snapshotID string, total int) *SnapshotResult {
	return &SnapshotResult{SnapshotID: snapshotID, Total: total, Status: ResultProcessing}
}

// QueuedSnapshotResult is reported for snapshots with no progress recorded yet.
func QueuedSnapshotResult(snapshotID string) *SnapshotResult {
	return &SnapshotResult{SnapshotID: snapshotID, Status: ResultQueued}
}

// FailedSnapshotResult marks a dump that stopped with an error.
func FailedSnapshotResult(snapshotID string) *SnapshotResult {
	return &SnapshotResult{SnapshotID: snapshotID, Status: ResultFailed}
}

// Increment records one more finished table. Percent moves in steps of 10
// and stays at 0 for fewer than 10 tables.
func (r *SnapshotResult) Increment() {
	r.Done++
	if r.Total < 10 {
		r.Percent = 0
		return
	}
	r.Percent = r.Done / (r.Total / 10) * 10
	if r.Percent > 100 {
		r.Percent = 100
	}
}

// Complete marks the dump as finished.
func (r *SnapshotResult) Complete() {
	r.Percent = 100
	r.Status = ResultComplete
}
