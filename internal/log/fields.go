package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldTemplateID    = "template_id"
	FieldAmountCents   = "amount_cents"
	FieldFrequency     = "frequency"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldEventID       = "calendar_event_id"
	FieldCount         = "count"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentRecurrence = "recurrence"
	ComponentAlerts     = "alerts"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentCalendar   = "calendar"
	ComponentAuth       = "auth"
	ComponentCache      = "cache"
)
