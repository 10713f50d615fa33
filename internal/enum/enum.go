package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusPickedUp   = "PICKED_UP"
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusReady      = "READY"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// ── Group B: Catalog labels (CHECK constrained in DB) ──

const (
	CategoryBasic     = "BASIC"
	CategoryPremium   = "PREMIUM"
	CategoryDeepClean = "DEEP_CLEAN"
	CategoryTreatment = "TREATMENT"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodQRIS     = "QRIS"
)

// ── Group C: Roles and derived labels ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleCustomer = "CUSTOMER"
)

// Customer activity is derived at read time from last_order_at,
// never persisted.
const (
	ActivityActive  = "ACTIVE"
	ActivityIdle    = "IDLE"
	ActivityDormant = "DORMANT"
)

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPickedUp,
		OrderStatusInProgress, OrderStatusReady, OrderStatusCompleted,
		OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentStatus reports whether s is a known payment status.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsValidCategory reports whether s is a known service category.
func IsValidCategory(s string) bool {
	switch s {
	case CategoryBasic, CategoryPremium, CategoryDeepClean, CategoryTreatment:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether s is a known payment method.
func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodQRIS:
		return true
	}
	return false
}
