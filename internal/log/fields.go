package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldStatusCode  = "status_code"
	FieldErrorKind   = "error_kind"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldDuration    = "duration_ms"
	FieldExpenseID   = "expense_id"
	FieldTitle       = "title"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldCount       = "count"
	FieldEpoch       = "session_epoch"
	FieldUsername    = "username"
	FieldStatePath   = "state_path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentGateway = "gateway"
	ComponentSession = "session"
	ComponentAuth    = "auth"
	ComponentExpense = "expense"
	ComponentStorage = "storage"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpRestore  = "restore"
	OpProfile  = "profile"
	OpList     = "list"
	OpAdd      = "add"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpSummary  = "summary"
)
