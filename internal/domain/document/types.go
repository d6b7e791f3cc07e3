package document

import (
	"fmt"

	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
)

// Kind is the type of a trade document
type Kind string

const (
	KindPurchaseInvoice Kind = "PURCHASE_INVOICE"
	KindSaleInvoice     Kind = "SALE_INVOICE"
	KindPurchaseReturn  Kind = "PURCHASE_RETURN"
	KindSalesReturn     Kind = "SALES_RETURN"
)

// IsValid returns true if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindPurchaseInvoice, KindSaleInvoice, KindPurchaseReturn, KindSalesReturn:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// NumberPrefix returns the prefix of this kind's document numbers
func (k Kind) NumberPrefix() string {
	switch k {
	case KindPurchaseInvoice:
		return "PI"
	case KindSaleInvoice:
		return "SI"
	case KindPurchaseReturn:
		return "PR"
	case KindSalesReturn:
		return "SR"
	}
	return "DOC"
}

// MovementKind returns the stock movement kind approval records
func (k Kind) MovementKind() inventory.MovementKind {
	switch k {
	case KindPurchaseInvoice:
		return inventory.MovementKindPurchase
	case KindSaleInvoice:
		return inventory.MovementKindSale
	case KindPurchaseReturn:
		return inventory.MovementKindPurchaseReturn
	default:
		return inventory.MovementKindSalesReturn
	}
}

// ReferenceKind returns the movement reference kind for documents of this kind
func (k Kind) ReferenceKind() inventory.ReferenceKind {
	switch k {
	case KindPurchaseInvoice:
		return inventory.ReferencePurchaseInvoice
	case KindSaleInvoice:
		return inventory.ReferenceSaleInvoice
	case KindPurchaseReturn:
		return inventory.ReferencePurchaseReturn
	default:
		return inventory.ReferenceSalesReturn
	}
}

// TransactionType returns the financial transaction type approval posts.
// Money flows in on sales and purchase returns, out on purchases and sales returns.
func (k Kind) TransactionType() finance.TransactionType {
	switch k {
	case KindSaleInvoice, KindPurchaseReturn:
		return finance.TransactionTypeIncome
	default:
		return finance.TransactionTypeExpense
	}
}

// Status is the lifecycle status of a document
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// A Draft is deleted rather than cancelled.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusApproved
	case StatusApproved:
		return target == StatusCancelled
	}
	return false
}

// PaymentMethod is how a document is settled
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// IsValid returns true if the payment method is known
func (p PaymentMethod) IsValid() bool {
	return p == PaymentMethodCash || p == PaymentMethodCredit
}

// FormatNumber renders a per-kind sequence value as a document number, e.g. PI-000001
func FormatNumber(kind Kind, seq int64) string {
	return fmt.Sprintf("%s-%06d", kind.NumberPrefix(), seq)
}
