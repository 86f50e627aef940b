package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ClinicIDKey is the context key for clinic ID
	ClinicIDKey contextKey = "clinic_id"
	// StaffIDKey is the context key for the acting staff member
	StaffIDKey contextKey = "staff_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if
// not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enrichedLogger := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// WithClinicID adds clinic ID to context and returns enriched logger
func WithClinicID(ctx context.Context, logger *zap.Logger, clinicID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ClinicIDKey, clinicID)
	enrichedLogger := logger.With(zap.String("clinic_id", clinicID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetClinicID retrieves clinic ID from context
func GetClinicID(ctx context.Context) string {
	if clinicID, ok := ctx.Value(ClinicIDKey).(string); ok {
		return clinicID
	}
	return ""
}

// GetStaffID retrieves the acting staff member's ID from context
func GetStaffID(ctx context.Context) string {
	if staffID, ok := ctx.Value(StaffIDKey).(string); ok {
		return staffID
	}
	return ""
}
