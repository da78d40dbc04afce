package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for validation run IDs.
	RunIDKey contextKey = "run_id"

	// TemplateKey is the context key for the template being applied.
	TemplateKey contextKey = "template"

	// FileKey is the context key for the SDRF file being validated.
	FileKey contextKey = "file"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTemplate adds a template name to the context.
func WithTemplate(ctx context.Context, template string) context.Context {
	return context.WithValue(ctx, TemplateKey, template)
}

// GetTemplate retrieves the template name from the context.
func GetTemplate(ctx context.Context) string {
	if v, ok := ctx.Value(TemplateKey).(string); ok {
		return v
	}
	return ""
}

// WithFile adds a file path to the context.
func WithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, FileKey, file)
}

// GetFile retrieves the file path from the context.
func GetFile(ctx context.Context) string {
	if v, ok := ctx.Value(FileKey).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the log fields present in ctx.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if v := GetRunID(ctx); v != "" {
		fields = append(fields, string(RunIDKey), v)
	}
	if v := GetTemplate(ctx); v != "" {
		fields = append(fields, string(TemplateKey), v)
	}
	if v := GetFile(ctx); v != "" {
		fields = append(fields, string(FileKey), v)
	}
	return fields
}
