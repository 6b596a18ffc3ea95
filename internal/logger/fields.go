package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a run.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the pipeline run ID (UUID)
	FieldRunID = "run_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldStage is the pipeline stage: catalog, search, transcripts, classify
	FieldStage = "stage"

	// FieldSetNumber is the catalog entry being processed
	FieldSetNumber = "set_number"

	// FieldVideoID is the platform video identifier being processed
	FieldVideoID = "video_id"
)

// Per-entry fields.
const (
	// FieldDecision is the outcome of one pipeline decision
	// (admitted, rejected, duplicate, skipped, sentinel, stored).
	FieldDecision = "decision"

	// FieldReason qualifies a decision, e.g. the failing admissibility rule
	FieldReason = "reason"

	// FieldErrorKind is the platform error kind behind a skip or sentinel
	FieldErrorKind = "error_kind"

	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
