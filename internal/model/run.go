package model

import "time"

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusNoData   RunStatus = "no_data"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats counts what an extraction run did.
type RunStats struct {
	URLsResolved   int `json:"urls_resolved"`
	URLsFetched    int `json:"urls_fetched"`
	URLsSkipped    int `json:"urls_skipped"`
	Chunks         int `json:"chunks"`
	URLsIrrelevant int `json:"urls_irrelevant"`
	Candidates     int `json:"candidates"`
	Admitted       int `json:"admitted"`
	Rejected       int `json:"rejected"`
	Duplicates     int `json:"duplicates"`
	Records        int `json:"records"`
}

// Run is the run log entry for one extraction request. It never holds the
// extracted records.
type Run struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Fields      []string  `json:"fields"`
	TargetCount int       `json:"target_count"`
	Status      RunStatus `json:"status"`
	Stats       RunStats  `json:"stats"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
