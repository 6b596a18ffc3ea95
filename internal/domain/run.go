package domain

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// PipelineRun records one invocation of a pipeline stage and its counters.
type PipelineRun struct {
	ID             string     `gorm:"column:id;type:text;primaryKey" json:"id"`
	Stage          string     `gorm:"column:stage;type:text;not null;index:idx_pipeline_runs_stage" json:"stage"`
	Status         RunStatus  `gorm:"column:status;type:text;not null" json:"status"`
	TotalItems     int64      `gorm:"column:total_items" json:"total_items"`
	ProcessedItems int64      `gorm:"column:processed_items" json:"processed_items"`
	SkippedItems   int64      `gorm:"column:skipped_items" json:"skipped_items"`
	FailedItems    int64      `gorm:"column:failed_items" json:"failed_items"`
	StartedAt      time.Time  `gorm:"column:started_at" json:"started_at"`
	FinishedAt     *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

// TableName returns the database table name for PipelineRun.
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// SchemaMigration records an applied schema version.
type SchemaMigration struct {
	Version   int       `gorm:"column:version;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;type:text;not null"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

// TableName returns the database table name for SchemaMigration.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
