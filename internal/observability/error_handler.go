// Package observability provides enhanced error handling and context propagation for the sync engine.
package observability

import (
	"context"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorContext carries the fields attached to one sync-engine error report.
type ErrorContext struct {
	TraceID  string `json:"trace_id,omitempty"`
	SpanID   string `json:"span_id,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Provider string `json:"provider,omitempty"`

	Duration  time.Duration `json:"duration_ms,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`

	Tags  map[string]string      `json:"tags,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// ErrorHandler provides enhanced error handling with Sentry integration and context propagation.
type ErrorHandler struct {
	logger        *Logger
	metrics       *MetricsCollector
	sentryEnabled bool
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *Logger, metrics *MetricsCollector, sentryEnabled bool) *ErrorHandler {
	return &ErrorHandler{
		logger:        logger,
		metrics:       metrics,
		sentryEnabled: sentryEnabled,
	}
}

// HandleError processes an error with full context and reporting.
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, errorCtx ErrorContext) {
	if err == nil {
		eh.logger.InfoContext(ctx, "operation completed successfully",
			"error_type", errorCtx.ErrorType,
			"tag", errorCtx.Tag,
			"provider", errorCtx.Provider,
			"duration_ms", errorCtx.Duration.Milliseconds(),
		)
		return
	}

	eh.logger.ErrorContext(ctx, "error occurred",
		"error", err.Error(),
		"error_type", errorCtx.ErrorType,
		"tag", errorCtx.Tag,
		"provider", errorCtx.Provider,
		"duration_ms", errorCtx.Duration.Milliseconds(),
	)

	if eh.metrics != nil && errorCtx.Provider != "" {
		eh.metrics.RecordSyncError(errorCtx.Provider, errorCtx.ErrorType)
	}

	if eh.sentryEnabled {
		eh.reportToSentry(ctx, err, errorCtx)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.String("error.type", errorCtx.ErrorType),
			attribute.String("error.tag", errorCtx.Tag),
		)
	}
}

// reportToSentry reports the error to Sentry with full context.
func (eh *ErrorHandler) reportToSentry(ctx context.Context, err error, errorCtx ErrorContext) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("error_type", errorCtx.ErrorType)
		scope.SetTag("service", "continueindex")

		if errorCtx.Tag != "" {
			scope.SetTag("sync.tag", errorCtx.Tag)
		}
		if errorCtx.Provider != "" {
			scope.SetTag("sync.provider", errorCtx.Provider)
		}
		if errorCtx.TraceID != "" {
			scope.SetTag("trace_id", errorCtx.TraceID)
		}
		if errorCtx.SpanID != "" {
			scope.SetTag("span_id", errorCtx.SpanID)
		}

		for key, value := range errorCtx.Tags {
			scope.SetTag(key, value)
		}

		if errorCtx.Duration > 0 {
			scope.SetContext("performance", map[string]interface{}{
				"duration_ms": errorCtx.Duration.Milliseconds(),
			})
		}

		pc := make([]uintptr, 10)
		n := runtime.Callers(2, pc)
		if n > 0 {
			frames := runtime.CallersFrames(pc[:n])
			stackTrace := make([]map[string]interface{}, 0, n)
			for {
				frame, more := frames.Next()
				stackTrace = append(stackTrace, map[string]interface{}{
					"function": frame.Function,
					"file":     frame.File,
					"line":     frame.Line,
				})
				if !more {
					break
				}
			}
			scope.SetContext("stack_trace", map[string]interface{}{
				"frames": stackTrace,
			})
		}

		if len(errorCtx.Extra) > 0 {
			scope.SetContext("extra", errorCtx.Extra)
		}

		sentry.CaptureException(err)
	})
}

// getErrorSuggestions provides helpful suggestions for the sync engine's error taxonomy (§7).
func (eh *ErrorHandler) getErrorSuggestions(errorType string) []string {
	suggestions := map[string][]string{
		"io_failure": {
			"Check filesystem permissions under the index root",
			"Verify the disk has free space",
			"Retry the sync; transient I/O errors are not persisted",
		},
		"corrupt_serialization": {
			"The affected cache or tree file was reset to its default and will be rebuilt on next sync",
			"If this recurs, check for concurrent writers to the same index root",
		},
		"invariant_violation": {
			"This indicates a bug in the sync engine's bookkeeping",
			"Report the tag and hash logged alongside this error",
		},
	}

	if s, exists := suggestions[errorType]; exists {
		return s
	}

	return []string{"Retry the sync", "If the problem persists, inspect the sync engine logs"}
}

// CreateErrorResponse builds a CLI-facing error summary, including remediation
// suggestions keyed off the sync engine's error taxonomy (§7).
func (eh *ErrorHandler) CreateErrorResponse(err error, errorCtx ErrorContext) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":      errorCtx.ErrorType,
			"message":   err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"context": map[string]interface{}{
			"tag":      errorCtx.Tag,
			"provider": errorCtx.Provider,
		},
		"suggestions": eh.getErrorSuggestions(errorCtx.ErrorType),
	}
}

// ExtractErrorContext extracts error context from the current context and span.
func ExtractErrorContext(ctx context.Context, tagStr string) ErrorContext {
	errorCtx := ErrorContext{
		Tag:   tagStr,
		Tags:  make(map[string]string),
		Extra: make(map[string]interface{}),
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		spanCtx := span.SpanContext()
		if spanCtx.HasTraceID() {
			errorCtx.TraceID = spanCtx.TraceID().String()
		}
		if spanCtx.HasSpanID() {
			errorCtx.SpanID = spanCtx.SpanID().String()
		}
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		errorCtx.TraceID = traceID
	}

	return errorCtx
}

// GracefulDegradation handles monitoring failures gracefully.
func (eh *ErrorHandler) GracefulDegradation(ctx context.Context, operation string, err error) {
	eh.logger.WarnContext(ctx, "monitoring operation failed, continuing without monitoring",
		"operation", operation,
		"error", err.Error(),
	)
}

// HealthCheck represents the health status of various components.
type HealthCheck struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Components map[string]interface{} `json:"components"`
}

// CreateHealthCheck creates a comprehensive health check response.
func (eh *ErrorHandler) CreateHealthCheck(ctx context.Context, version string) HealthCheck {
	health := HealthCheck{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    version,
		Components: make(map[string]interface{}),
	}

	if eh.sentryEnabled {
		health.Components["sentry"] = map[string]interface{}{"status": "enabled", "configured": true}
	} else {
		health.Components["sentry"] = map[string]interface{}{"status": "disabled", "configured": false}
	}

	if eh.metrics != nil {
		health.Components["metrics"] = map[string]interface{}{"status": "enabled", "configured": true}
	} else {
		health.Components["metrics"] = map[string]interface{}{"status": "disabled", "configured": false}
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		health.Components["tracing"] = map[string]interface{}{"status": "enabled", "configured": true}
	} else {
		health.Components["tracing"] = map[string]interface{}{"status": "disabled", "configured": false}
	}

	allHealthy := true
	for _, component := range health.Components {
		if comp, ok := component.(map[string]interface{}); ok {
			if status, ok := comp["status"].(string); ok && status != "enabled" {
				allHealthy = false
				break
			}
		}
	}

	if !allHealthy {
		health.Status = "degraded"
	}

	return health
}
