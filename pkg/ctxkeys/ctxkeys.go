// Package ctxkeys defines typed context keys to avoid SA1029 lint warnings
// and prevent key collisions across packages.
package ctxkeys

// Key is a typed context key to prevent collisions.
type Key string

// Auth context keys
const (
	KeyUserID     Key = "user_id"
	KeyRole       Key = "role"
	KeyAuthType   Key = "auth_type"
	KeyWalletAddr Key = "wallet_address"
)

// Payment context keys
const (
	KeyXPayment       Key = "x_payment"
	KeyIdempotencyKey Key = "idempotency_key"
)

// Request context keys
const (
	KeyRequestID Key = "request_id"
)
