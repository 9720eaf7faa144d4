package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the upload job ID
	FieldJobID = "job_id"

	// FieldUserID is the owning user ID
	FieldUserID = "user_id"

	// FieldProvider is the external provider name (keepa, identity, telegram)
	FieldProvider = "provider"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldRows is a row count
	FieldRows = "rows"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
