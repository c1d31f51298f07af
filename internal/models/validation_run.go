package models

import "time"

// Run lifecycle states. A run moves pending -> processing -> one of the
// terminal states.
const (
	RunStatusPending             = "pending"
	RunStatusProcessing          = "processing"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
)

type ValidationRun struct {
	ID             int       `db:"id" json:"id"`
	RunCode        string    `db:"run_code" json:"run_code"`
	UserID         int       `db:"user_id" json:"user_id"`
	Filename       string    `db:"filename" json:"filename"`
	FilePath       string    `db:"file_path" json:"-"`
	ArtifactPath   string    `db:"artifact_path" json:"-"`
	SkipReferences bool      `db:"skip_references" json:"skip_references"`
	Status         string    `db:"status" json:"status"`
	TotalSheets    int       `db:"total_sheets" json:"total_sheets"`
	TotalRows      int       `db:"total_rows" json:"total_rows"`
	TotalErrors    int       `db:"total_errors" json:"total_errors"`
	StructureValid bool      `db:"structure_valid" json:"structure_valid"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	ReportJSON     []byte    `db:"report_json" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasArtifact reports whether the annotated workbook was written for this run
func (r *ValidationRun) HasArtifact() bool {
	return r.ArtifactPath != ""
}

// Finished reports whether the run reached a terminal state
func (r *ValidationRun) Finished() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusCompletedWithErrors, RunStatusFailed:
		return true
	}
	return false
}

// RunProgress is the transient processing state published to Redis while a
// run executes.
type RunProgress struct {
	RunID        int     `json:"run_id"`
	Percent      float64 `json:"percent"`
	CurrentSheet string  `json:"current_sheet"`
	Status       string  `json:"status"`
}
