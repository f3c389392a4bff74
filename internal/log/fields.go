package log

import (
	"sort"

	"kontor/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldDuration   = "duration_ms"
	FieldOwnerID    = "owner_id"
	FieldOwnerName  = "owner_name"
	FieldOwnerKind  = "owner_kind"
	FieldCategory   = "category"
	FieldStatusDate = "status_date"
	FieldPeriod     = "period"
	FieldWindowFrom = "window_from"
	FieldWindowTo   = "window_to"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentTimeline = "timeline"
	ComponentCalc     = "calc"
	ComponentReport   = "report"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentExport   = "export"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpList      = "list"
	OpImport    = "import"
	OpPopulate  = "populate"
	OpCalculate = "calculate"
	OpExport    = "export"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner adds the identifying fields of an owner.
func (f LogFields) WithOwner(o core.Owner) LogFields {
	f[FieldOwnerID] = o.ID
	f[FieldOwnerName] = o.Name
	f[FieldOwnerKind] = string(o.Kind)
	f[FieldCategory] = o.Category.Number
	return f
}

func (f LogFields) WithStatusDate(d core.Date) LogFields {
	f[FieldStatusDate] = d.String()
	return f
}

func (f LogFields) WithPeriod(p core.Period) LogFields {
	f[FieldPeriod] = p.String()
	return f
}

// WithWindow adds the bounds of an analysis window.
func (f LogFields) WithWindow(from, to core.Period) LogFields {
	f[FieldWindowFrom] = from.String()
	f[FieldWindowTo] = to.String()
	return f
}

// ToSlice converts LogFields to a slice for slog, ordered by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
