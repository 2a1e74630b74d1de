package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldFamilyID      = "family_id"
	FieldHeadID        = "head_id"
	FieldSubmitterID   = "submitter_id"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldState         = "state"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldCategory      = "category"
	FieldDecision      = "decision"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentFamily   = "family"
	ComponentBudget   = "budget"
	ComponentStorage  = "storage"
	ComponentNotify   = "notify"
	ComponentNotifier = "notifier_worker"
)
