package enums

// AuditSeverity grades audit log entries.
type AuditSeverity string

const (
	AuditSeverityInfo    AuditSeverity = "info"
	AuditSeverityWarning AuditSeverity = "warning"
	AuditSeverityError   AuditSeverity = "error"
)

// AuditTargetType names the aggregate an audit entry refers to.
type AuditTargetType string

const (
	AuditTargetOrder     AuditTargetType = "order"
	AuditTargetOrderItem AuditTargetType = "order_item"
	AuditTargetDispute   AuditTargetType = "dispute"
)

// Audit actions recorded by the lifecycle engine.
const (
	AuditActionStatusChange     = "order.status_change"
	AuditActionStatusRejected   = "order.status_rejected"
	AuditActionItemStatusChange = "order_item.status_change"
	AuditActionOrderCancelled   = "order.cancelled"
	AuditActionDisputeOpened    = "dispute.opened"
	AuditActionPaymentWebhook   = "payment.webhook"
)
