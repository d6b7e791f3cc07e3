package shared

import "context"

// Severity grades how urgently a notification needs attention
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid returns true if the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// Notifier dispatches a ready-made message to staff. Delivery is fire-and-forget:
// callers log a returned error and never fail the underlying operation because of it.
type Notifier interface {
	Notify(ctx context.Context, title, message string, severity Severity) error
}

// NopNotifier discards every notification
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(context.Context, string, string, Severity) error {
	return nil
}
