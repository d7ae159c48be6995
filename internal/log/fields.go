package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldUserID    = "user_id"
	FieldView      = "view"
	FieldExpenseID = "expense_id"
	FieldMonth     = "month"
	FieldBackend   = "backend"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentAPI       = "api"
	ComponentSession   = "session"
	ComponentDashboard = "dashboard"
	ComponentCache     = "cache"
	ComponentDaemon    = "daemon"
	ComponentTUI       = "tui"
)

// Operation names.
const (
	OpLogin    = "login"
	OpSignup   = "signup"
	OpResume   = "resume"
	OpLogout   = "logout"
	OpList     = "list"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpStats    = "stats"
	OpMonthly  = "monthly"
	OpPredict  = "predict"
	OpExport   = "export"
	OpSnapshot = "snapshot"
)
