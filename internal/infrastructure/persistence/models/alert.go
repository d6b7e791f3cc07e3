package models

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// AlertModel is the persistence model for batch alerts.
// The unique (batch_id, type) index makes raising an alert idempotent.
type AlertModel struct {
	BaseModel
	BatchID       int64           `gorm:"not null;uniqueIndex:idx_alert_batch_type,priority:1"`
	MedicineID    int64           `gorm:"not null;index"`
	Type          alert.Type      `gorm:"type:varchar(30);not null;uniqueIndex:idx_alert_batch_type,priority:2"`
	Severity      shared.Severity `gorm:"type:varchar(20);not null"`
	Title         string          `gorm:"type:varchar(200);not null"`
	MessageEN     string          `gorm:"column:message_en;type:text;not null"`
	MessageAR     string          `gorm:"column:message_ar;type:text;not null"`
	Status        alert.Status    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ExpiryDate    *time.Time      `gorm:"type:date"`
	DaysRemaining *int
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts the persistence model to a domain Alert.
func (m *AlertModel) ToDomain() *alert.Alert {
	return &alert.Alert{
		BaseEntity:    m.BaseModel.ToDomain(),
		BatchID:       m.BatchID,
		MedicineID:    m.MedicineID,
		Type:          m.Type,
		Severity:      m.Severity,
		Title:         m.Title,
		MessageEN:     m.MessageEN,
		MessageAR:     m.MessageAR,
		Status:        m.Status,
		ExpiryDate:    m.ExpiryDate,
		DaysRemaining: m.DaysRemaining,
	}
}

// AlertModelFromDomain creates a new persistence model from a domain Alert.
func AlertModelFromDomain(a *alert.Alert) *AlertModel {
	m := &AlertModel{
		BatchID:       a.BatchID,
		MedicineID:    a.MedicineID,
		Type:          a.Type,
		Severity:      a.Severity,
		Title:         a.Title,
		MessageEN:     a.MessageEN,
		MessageAR:     a.MessageAR,
		Status:        a.Status,
		ExpiryDate:    a.ExpiryDate,
		DaysRemaining: a.DaysRemaining,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
