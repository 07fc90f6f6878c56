package enums

// NotificationType classifies buyer/vendor facing notifications.
type NotificationType string

const (
	NotificationOrderPlaced    NotificationType = "order_placed"
	NotificationOrderPaid      NotificationType = "order_paid"
	NotificationOrderShipped   NotificationType = "order_shipped"
	NotificationOrderDelivered NotificationType = "order_delivered"
	NotificationOrderCompleted NotificationType = "order_completed"
	NotificationOrderCancelled NotificationType = "order_cancelled"
	NotificationOrderDisputed  NotificationType = "order_disputed"
)

// NotificationRecipientRole says which side of the marketplace receives it.
type NotificationRecipientRole string

const (
	NotificationRecipientBuyer  NotificationRecipientRole = "buyer"
	NotificationRecipientVendor NotificationRecipientRole = "vendor"
)
