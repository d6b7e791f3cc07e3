package models

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate root.
type DocumentModel struct {
	AggregateModel
	Number             string                 `gorm:"type:varchar(30);not null;uniqueIndex"`
	Kind               document.Kind          `gorm:"type:varchar(30);not null;index:idx_document_kind_status,priority:1"`
	CounterpartyID     int64                  `gorm:"not null;index"`
	OriginalDocumentID *int64                 `gorm:"index"`
	Date               time.Time              `gorm:"not null"`
	TotalAmount        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PaymentMethod      document.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status             document.Status        `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_document_kind_status,priority:2"`
	CreatedBy          int64                  `gorm:"not null"`
	ApprovedBy         *int64
	ApprovedAt         *time.Time
	CancelledBy        *int64
	CancelledAt        *time.Time
	CancelReason       string              `gorm:"type:varchar(500)"`
	Notes              string              `gorm:"type:varchar(500)"`
	Lines              []DocumentLineModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document with its lines.
func (m *DocumentModel) ToDomain() *document.Document {
	d := &document.Document{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Number:             m.Number,
		Kind:               m.Kind,
		CounterpartyID:     m.CounterpartyID,
		OriginalDocumentID: m.OriginalDocumentID,
		Date:               m.Date,
		TotalAmount:        m.TotalAmount,
		PaymentMethod:      m.PaymentMethod,
		Status:             m.Status,
		CreatedBy:          m.CreatedBy,
		ApprovedBy:         m.ApprovedBy,
		ApprovedAt:         m.ApprovedAt,
		CancelledBy:        m.CancelledBy,
		CancelledAt:        m.CancelledAt,
		CancelReason:       m.CancelReason,
		Notes:              m.Notes,
		Lines:              make([]document.Line, len(m.Lines)),
	}
	for i := range m.Lines {
		d.Lines[i] = m.Lines[i].ToDomain()
	}
	return d
}

// FromDomain populates the header columns from a domain Document. Lines are written
// separately by the repository.
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.Number = d.Number
	m.Kind = d.Kind
	m.CounterpartyID = d.CounterpartyID
	m.OriginalDocumentID = d.OriginalDocumentID
	m.Date = d.Date
	m.TotalAmount = d.TotalAmount
	m.PaymentMethod = d.PaymentMethod
	m.Status = d.Status
	m.CreatedBy = d.CreatedBy
	m.ApprovedBy = d.ApprovedBy
	m.ApprovedAt = d.ApprovedAt
	m.CancelledBy = d.CancelledBy
	m.CancelledAt = d.CancelledAt
	m.CancelReason = d.CancelReason
	m.Notes = d.Notes
}

// DocumentModelFromDomain creates a new header model from a domain Document.
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// DocumentLineModel is the persistence model for a document line.
type DocumentLineModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	DocumentID  int64           `gorm:"not null;index"`
	MedicineID  int64           `gorm:"not null;index"`
	BatchID     *int64          `gorm:"index"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BatchNumber string          `gorm:"type:varchar(64)"`
	ExpiryDate  *time.Time      `gorm:"type:date"`
	SalePrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	Allocations []LineAllocationModel `gorm:"foreignKey:LineID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// ToDomain converts the persistence model to a domain Line.
func (m *DocumentLineModel) ToDomain() document.Line {
	line := document.Line{
		ID:          m.ID,
		DocumentID:  m.DocumentID,
		MedicineID:  m.MedicineID,
		BatchID:     m.BatchID,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		BatchNumber: m.BatchNumber,
		ExpiryDate:  m.ExpiryDate,
		SalePrice:   m.SalePrice,
		Allocations: make([]document.LineAllocation, len(m.Allocations)),
	}
	for i, a := range m.Allocations {
		line.Allocations[i] = a.ToDomain()
	}
	return line
}

// DocumentLineModelFromDomain creates a line model without its allocations.
func DocumentLineModelFromDomain(documentID int64, l *document.Line) *DocumentLineModel {
	return &DocumentLineModel{
		ID:          l.ID,
		DocumentID:  documentID,
		MedicineID:  l.MedicineID,
		BatchID:     l.BatchID,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		BatchNumber: l.BatchNumber,
		ExpiryDate:  l.ExpiryDate,
		SalePrice:   l.SalePrice,
	}
}

// LineAllocationModel records the batch a line's units were taken from or put into.
type LineAllocationModel struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	LineID   int64 `gorm:"not null;index"`
	BatchID  int64 `gorm:"not null;index"`
	Quantity int64 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LineAllocationModel) TableName() string {
	return "line_allocations"
}

// ToDomain converts the persistence model to a domain LineAllocation.
func (m *LineAllocationModel) ToDomain() document.LineAllocation {
	return document.LineAllocation{
		ID:       m.ID,
		LineID:   m.LineID,
		BatchID:  m.BatchID,
		Quantity: m.Quantity,
	}
}

// DocumentSequenceModel holds the last number issued per document kind.
type DocumentSequenceModel struct {
	Kind      document.Kind `gorm:"type:varchar(30);primaryKey"`
	LastValue int64         `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
