package redisx

import "time"

const (
	// Order status cache: order_status:{order_id} -> {"shipping_status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Active one-time code per user: otp:user:{user_id} -> {"username": "...", "code": "..."}
	KeyOTPUser = "otp:user:%d"

	// Reverse lookup used by validation: otp:code:{username}:{code} -> user_id
	KeyOTPCode = "otp:code:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
