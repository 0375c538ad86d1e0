package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOwnerID     = "owner_id"
	FieldTxID        = "transaction_id"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldKind        = "kind"
	FieldCycleStart  = "cycle_start"
	FieldGranularity = "granularity"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldRowRef      = "row_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentCurrency = "currency"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentExport   = "export"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpRecord    = "record"
	OpDelete    = "delete"
	OpList      = "list"
	OpSummarize = "summarize"
	OpAnalyze   = "analyze"
	OpAppend    = "append"
	OpSync      = "sync"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
