package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineAllocation records how many units of a line came from one batch.
// Sale lines get one per FEFO split; other kinds get exactly one.
type LineAllocation struct {
	ID       int64
	LineID   int64
	BatchID  int64
	Quantity int64
}

// Line is one item of a document
type Line struct {
	ID         int64
	DocumentID int64
	MedicineID int64
	BatchID    *int64 // required on returns, optional on sales, unset on purchases
	Quantity   int64
	UnitPrice  decimal.Decimal

	// Purchase-only: the batch to create on approval
	BatchNumber string
	ExpiryDate  *time.Time
	SalePrice   decimal.Decimal

	Allocations []LineAllocation
}

// LineInput is the caller-supplied shape of a line
type LineInput struct {
	MedicineID  int64           `validate:"required,gt=0"`
	BatchID     *int64          `validate:"omitempty,gt=0"`
	Quantity    int64           `validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `validate:"-"`
	BatchNumber string          `validate:"omitempty,max=64"`
	ExpiryDate  *time.Time      `validate:"-"`
	SalePrice   decimal.Decimal `validate:"-"`
}

// Total returns Quantity * UnitPrice
func (l *Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// AllocatedQuantity sums the line's allocations
func (l *Line) AllocatedQuantity() int64 {
	var total int64
	for _, a := range l.Allocations {
		total += a.Quantity
	}
	return total
}

func newLine(kind Kind, in LineInput, index int) (Line, error) {
	prefix := fmt.Sprintf("Line %d: ", index+1)
	if in.MedicineID <= 0 {
		return Line{}, shared.NewDomainError("INVALID_MEDICINE", prefix+"medicine ID must be positive")
	}
	if in.Quantity <= 0 {
		return Line{}, shared.NewDomainError("INVALID_QUANTITY", prefix+"quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return Line{}, shared.NewDomainError("INVALID_PRICE", prefix+"unit price cannot be negative")
	}

	line := Line{
		MedicineID: in.MedicineID,
		BatchID:    in.BatchID,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
	}

	switch kind {
	case KindPurchaseInvoice:
		if in.BatchID != nil {
			return Line{}, shared.NewDomainError("UNEXPECTED_BATCH", prefix+"purchase lines create their batch")
		}
		number := strings.TrimSpace(in.BatchNumber)
		if number == "" {
			return Line{}, shared.NewDomainError("INVALID_BATCH_NUMBER", prefix+"batch number is required")
		}
		if in.ExpiryDate == nil || in.ExpiryDate.IsZero() {
			return Line{}, shared.NewDomainError("INVALID_EXPIRY_DATE", prefix+"expiry date is required")
		}
		if in.SalePrice.IsNegative() {
			return Line{}, shared.NewDomainError("INVALID_PRICE", prefix+"sale price cannot be negative")
		}
		expiry := shared.Day(*in.ExpiryDate)
		line.BatchNumber = number
		line.ExpiryDate = &expiry
		line.SalePrice = in.SalePrice
	case KindPurchaseReturn, KindSalesReturn:
		if in.BatchID == nil {
			return Line{}, shared.NewDomainError("BATCH_REQUIRED", prefix+"returns must name the batch")
		}
	}
	return line, nil
}

// Document is a purchase invoice, sale invoice, purchase return or sales return.
// Lines are editable only while the document is a Draft.
type Document struct {
	shared.BaseAggregateRoot
	Number             string
	Kind               Kind
	CounterpartyID     int64
	OriginalDocumentID *int64 // invoice a return refers to, informational
	Date               time.Time
	TotalAmount        decimal.Decimal
	PaymentMethod      PaymentMethod
	Status             Status
	CreatedBy          int64
	ApprovedBy         *int64
	ApprovedAt         *time.Time
	CancelledBy        *int64
	CancelledAt        *time.Time
	CancelReason       string
	Notes              string
	Lines              []Line
}

// DraftInput carries the fields of a new draft
type DraftInput struct {
	Kind               Kind          `validate:"required"`
	CounterpartyID     int64         `validate:"required,gt=0"`
	OriginalDocumentID *int64        `validate:"omitempty,gt=0"`
	Date               time.Time     `validate:"-"`
	PaymentMethod      PaymentMethod `validate:"required"`
	CreatedBy          int64         `validate:"required,gt=0"`
	Notes              string        `validate:"max=500"`
	Lines              []LineInput   `validate:"required,min=1,dive"`
}

// NewDraft creates a Draft document. The number is assigned by the caller from the
// per-kind sequence.
func NewDraft(number string, in DraftInput, now time.Time) (*Document, error) {
	if !in.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unknown document kind: %s", in.Kind))
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if in.CounterpartyID <= 0 {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID must be positive")
	}
	if !in.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method: %s", in.PaymentMethod))
	}
	if in.CreatedBy <= 0 {
		return nil, shared.NewDomainError("INVALID_USER", "Creator ID must be positive")
	}
	date := in.Date
	if date.IsZero() {
		date = now
	}

	d := &Document{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(now),
		Number:             number,
		Kind:               in.Kind,
		CounterpartyID:     in.CounterpartyID,
		OriginalDocumentID: in.OriginalDocumentID,
		Date:               date.UTC(),
		PaymentMethod:      in.PaymentMethod,
		Status:             StatusDraft,
		CreatedBy:          in.CreatedBy,
		Notes:              in.Notes,
	}
	if err := d.setLines(in.Lines); err != nil {
		return nil, err
	}
	return d, nil
}

// ReplaceLines swaps the lines of a draft and recomputes its total
func (d *Document) ReplaceLines(lines []LineInput, now time.Time) error {
	if d.Status != StatusDraft {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_DRAFT",
			fmt.Sprintf("Lines of %s can only be changed in DRAFT status, current: %s", d.Number, d.Status))
	}
	if err := d.setLines(lines); err != nil {
		return err
	}
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

func (d *Document) setLines(inputs []LineInput) error {
	if len(inputs) == 0 {
		return shared.NewDomainError("NO_LINES", "Document must have at least one line")
	}
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		line, err := newLine(d.Kind, in, i)
		if err != nil {
			return err
		}
		line.DocumentID = d.ID
		lines = append(lines, line)
	}
	d.Lines = lines
	d.recalculateTotal()
	return nil
}

func (d *Document) recalculateTotal() {
	total := decimal.Zero
	for i := range d.Lines {
		total = total.Add(d.Lines[i].Total())
	}
	d.TotalAmount = total
}

// CanDelete returns true if the document may be hard-deleted
func (d *Document) CanDelete() bool {
	return d.Status == StatusDraft
}

// EnsureDeletable returns InvalidTransition unless the document is a Draft
func (d *Document) EnsureDeletable() error {
	if !d.CanDelete() {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_DRAFT",
			fmt.Sprintf("Only DRAFT documents can be deleted, %s is %s", d.Number, d.Status))
	}
	return nil
}

// EnsureApprovable checks the source state before any stock or money effect
func (d *Document) EnsureApprovable() error {
	if !d.Status.CanTransitionTo(StatusApproved) {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_DRAFT",
			fmt.Sprintf("Only DRAFT documents can be approved, %s is %s", d.Number, d.Status))
	}
	return nil
}

// EnsureCancellable checks the source state before any reversal
func (d *Document) EnsureCancellable() error {
	if !d.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewKindError(shared.KindInvalidTransition, "NOT_APPROVED",
			fmt.Sprintf("Only APPROVED documents can be cancelled, %s is %s", d.Number, d.Status))
	}
	return nil
}

// Approve moves the document to Approved. Effects are applied by the lifecycle service
// in the same transaction before this is called.
func (d *Document) Approve(approverID int64, now time.Time) error {
	if err := d.EnsureApprovable(); err != nil {
		return err
	}
	if approverID <= 0 {
		return shared.NewDomainError("INVALID_USER", "Approver ID must be positive")
	}
	d.Status = StatusApproved
	d.ApprovedBy = &approverID
	d.ApprovedAt = &now
	d.Touch(now)
	d.IncrementVersion()
	d.AddDomainEvent(NewApprovedEvent(d, now))
	return nil
}

// Cancel moves the document to Cancelled
func (d *Document) Cancel(cancellerID int64, reason string, now time.Time) error {
	if err := d.EnsureCancellable(); err != nil {
		return err
	}
	if cancellerID <= 0 {
		return shared.NewDomainError("INVALID_USER", "Canceller ID must be positive")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason is required")
	}
	d.Status = StatusCancelled
	d.CancelledBy = &cancellerID
	d.CancelledAt = &now
	d.CancelReason = reason
	d.Touch(now)
	d.IncrementVersion()
	d.AddDomainEvent(NewCancelledEvent(d, now))
	return nil
}

// SignedAmount returns the amount approval posts to the financial ledger
func (d *Document) SignedAmount() decimal.Decimal {
	if d.Kind.TransactionType().Sign() < 0 {
		return d.TotalAmount.Neg()
	}
	return d.TotalAmount
}

// LineByID returns a pointer to the line with the given ID
func (d *Document) LineByID(id int64) *Line {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return &d.Lines[i]
		}
	}
	return nil
}
