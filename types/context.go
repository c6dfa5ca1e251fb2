package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyBookingID contextKey = "booking_id"
)

// WithRequestID adds the HTTP request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the HTTP request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithBookingID adds the orchestration correlation ID to context.
func WithBookingID(ctx context.Context, bookingID string) context.Context {
	return context.WithValue(ctx, keyBookingID, bookingID)
}

// BookingID extracts the orchestration correlation ID from context.
func BookingID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyBookingID).(string)
	return v, ok && v != ""
}
