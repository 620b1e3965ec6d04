// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	// Project context
	if project := ProjectFromContext(ctx); project != nil {
		fields = append(fields,
			zap.String("project.path", project.Path),
			zap.String("project.branch", project.Branch),
		)
	}

	// Conversation context
	if conversationID := ConversationIDFromContext(ctx); conversationID != "" {
		fields = append(fields, zap.String("conversation.id", conversationID))
	}

	// Request ID
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// Context key types
type projectCtxKey struct{}
type conversationCtxKey struct{}
type requestCtxKey struct{}

// Project identifies the project a request operates on.
type Project struct {
	Path   string
	Branch string
}

// Validation constants
const (
	maxPathLen = 4096
	maxIDLen   = 128
)

// idPattern allows alphanumeric, hyphen, underscore.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validatePath validates a project path or branch name for correlation.
// Paths and branch names legitimately carry slashes and dots, so only
// emptiness, encoding, and length are checked.
func validatePath(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(value) > maxPathLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxPathLen)
	}
	return nil
}

// validateID validates a conversation or request ID.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// ProjectFromContext extracts project from context.
func ProjectFromContext(ctx context.Context) *Project {
	if p, ok := ctx.Value(projectCtxKey{}).(*Project); ok {
		return p
	}
	return nil
}

// WithProject adds project to context.
// Panics if project is nil or contains invalid field values.
func WithProject(ctx context.Context, project *Project) context.Context {
	if project == nil {
		panic("logging: project cannot be nil")
	}
	if err := validatePath(project.Path, "project.Path"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	if err := validatePath(project.Branch, "project.Branch"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, projectCtxKey{}, project)
}

// ConversationIDFromContext extracts conversation ID from context.
func ConversationIDFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(conversationCtxKey{}).(string); ok {
		return c
	}
	return ""
}

// WithConversationID adds conversation ID to context.
// Panics if conversationID is empty or contains invalid characters.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	if err := validateID(conversationID, "conversationID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, conversationCtxKey{}, conversationID)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context.
// Panics if requestID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
