package alert

import (
	"fmt"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// Type classifies an alert. At most one alert of each type exists per batch.
type Type string

const (
	TypeExpiryOneWeek   Type = "EXPIRY_ONE_WEEK"
	TypeExpiryTwoWeeks  Type = "EXPIRY_TWO_WEEKS"
	TypeExpiryOneMonth  Type = "EXPIRY_ONE_MONTH"
	TypeExpiryTwoMonths Type = "EXPIRY_TWO_MONTHS"
	TypeExpired         Type = "EXPIRED"
	TypeLowStock        Type = "LOW_STOCK"
	TypeDamaged         Type = "DAMAGED"
)

// IsValid returns true if the type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeExpiryOneWeek, TypeExpiryTwoWeeks, TypeExpiryOneMonth, TypeExpiryTwoMonths,
		TypeExpired, TypeLowStock, TypeDamaged:
		return true
	}
	return false
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Status is the handling status of an alert
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRead      Status = "READ"
	StatusDismissed Status = "DISMISSED"
	StatusResolved  Status = "RESOLVED"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRead, StatusDismissed, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusRead || target == StatusDismissed || target == StatusResolved
	case StatusRead:
		return target == StatusDismissed || target == StatusResolved
	}
	return false
}

// ExpiryBucket returns the near-expiry alert type for a batch expiring in days
func ExpiryBucket(days int) Type {
	switch {
	case days <= 7:
		return TypeExpiryOneWeek
	case days <= 14:
		return TypeExpiryTwoWeeks
	case days <= 30:
		return TypeExpiryOneMonth
	}
	return TypeExpiryTwoMonths
}

// ExpirySeverity returns Warning within a week of expiry, Info otherwise
func ExpirySeverity(days int) shared.Severity {
	if days <= 7 {
		return shared.SeverityWarning
	}
	return shared.SeverityInfo
}

// Alert is a notification raised for a batch
type Alert struct {
	shared.BaseEntity
	BatchID       int64
	MedicineID    int64
	Type          Type
	Severity      shared.Severity
	Title         string
	MessageEN     string
	MessageAR     string
	Status        Status
	ExpiryDate    *time.Time
	DaysRemaining *int
}

// Subject describes the batch an alert is about
type Subject struct {
	BatchID     int64
	MedicineID  int64
	BatchNumber string
	ExpiryDate  time.Time
	Remaining   int64
}

// NewAlert creates a Pending alert with bilingual text rendered from the catalog
func NewAlert(typ Type, severity shared.Severity, subject Subject, today time.Time, now time.Time) (*Alert, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_ALERT_TYPE", fmt.Sprintf("Unknown alert type: %s", typ))
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEVERITY", fmt.Sprintf("Unknown severity: %s", severity))
	}
	if subject.BatchID <= 0 {
		return nil, shared.NewDomainError("INVALID_BATCH", "Alert batch ID must be positive")
	}

	a := &Alert{
		BaseEntity: shared.NewBaseEntity(now),
		BatchID:    subject.BatchID,
		MedicineID: subject.MedicineID,
		Type:       typ,
		Severity:   severity,
		Status:     StatusPending,
	}
	if !subject.ExpiryDate.IsZero() {
		expiry := shared.Day(subject.ExpiryDate)
		days := shared.DaysBetween(today, expiry)
		a.ExpiryDate = &expiry
		a.DaysRemaining = &days
	}
	a.Title, a.MessageEN, a.MessageAR = Render(typ, subject, today)
	return a, nil
}

func (a *Alert) transition(target Status, now time.Time) error {
	if !a.Status.CanTransitionTo(target) {
		return shared.NewKindError(shared.KindInvalidTransition, "INVALID_ALERT_TRANSITION",
			fmt.Sprintf("Alert %d cannot move from %s to %s", a.ID, a.Status, target))
	}
	a.Status = target
	a.Touch(now)
	return nil
}

// MarkRead marks a pending alert as read
func (a *Alert) MarkRead(now time.Time) error {
	return a.transition(StatusRead, now)
}

// Dismiss closes an alert without action
func (a *Alert) Dismiss(now time.Time) error {
	return a.transition(StatusDismissed, now)
}

// Resolve closes an alert as handled
func (a *Alert) Resolve(now time.Time) error {
	return a.transition(StatusResolved, now)
}

// IsOpen returns true while the alert still needs attention
func (a *Alert) IsOpen() bool {
	return a.Status == StatusPending || a.Status == StatusRead
}
