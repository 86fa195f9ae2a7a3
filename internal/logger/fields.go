package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried through the call chain in context.
const (
	FieldRequestID    = "request_id"
	FieldComponent    = "component"
	FieldVideoID      = "video_id"
	FieldCollectionID = "collection_id"
	FieldStage        = "stage"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
