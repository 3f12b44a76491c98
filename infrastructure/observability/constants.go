package observability

// Metric name prefixes
const (
	MetricPrefix = "lending"
)

// Metric names
const (
	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"

	// Yield metrics
	YieldPayoutsTotal = MetricPrefix + ".yield.payouts_total"
	YieldPaidAmount   = MetricPrefix + ".yield.paid_amount"

	// Import metrics
	ImportRowsTotal = MetricPrefix + ".import.rows_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Engine operation metrics
	OperationDuration = MetricPrefix + ".operation.duration"

	// Database metrics
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelSubject   = "subject"
	LabelOutcome   = "outcome"
	LabelOperation = "operation"
	LabelStatement = "statement"
)

// Import row outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)
