package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = testutil.Date(2026, 3, 1).Add(9 * time.Hour)

func saleDraft(t *testing.T, number string, quantities ...int64) *document.Document {
	t.Helper()
	lines := make([]document.LineInput, len(quantities))
	for i, q := range quantities {
		lines[i] = document.LineInput{MedicineID: int64(i + 1), Quantity: q, UnitPrice: decimal.NewFromInt(10)}
	}
	doc, err := document.NewDraft(number, document.DraftInput{
		Kind:           document.KindSaleInvoice,
		CounterpartyID: 4,
		Date:           repoNow,
		PaymentMethod:  document.PaymentMethodCash,
		CreatedBy:      1,
		Lines:          lines,
	}, repoNow)
	require.NoError(t, err)
	return doc
}

func TestGormDocumentRepository_NextNumber(t *testing.T) {
	repo := NewGormDocumentRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	for _, want := range []string{"SI-000001", "SI-000002", "SI-000003"} {
		got, err := repo.NextNumber(ctx, document.KindSaleInvoice)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := repo.NextNumber(ctx, document.KindSalesReturn)
	require.NoError(t, err)
	assert.Equal(t, "SR-000001", got)
}

func TestGormDocumentRepository_Lifecycle(t *testing.T) {
	repo := NewGormDocumentRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	doc := saleDraft(t, "SI-000001", 3, 4)
	require.NoError(t, repo.Create(ctx, doc))
	require.NotZero(t, doc.ID)
	for _, line := range doc.Lines {
		assert.NotZero(t, line.ID)
		assert.Equal(t, doc.ID, line.DocumentID)
	}

	found, err := repo.FindByNumber(ctx, "SI-000001")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
	require.Len(t, found.Lines, 2)
	assert.True(t, decimal.NewFromInt(70).Equal(found.TotalAmount))

	// Draft saves rewrite the lines
	require.NoError(t, found.ReplaceLines([]document.LineInput{
		{MedicineID: 9, Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
	}, repoNow))
	require.NoError(t, repo.Save(ctx, found))

	found, err = repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, int64(9), found.Lines[0].MedicineID)

	// Approved saves only add allocations
	found.Lines[0].Allocations = append(found.Lines[0].Allocations, document.LineAllocation{BatchID: 11, Quantity: 1})
	require.NoError(t, found.Approve(2, repoNow))
	require.NoError(t, repo.Save(ctx, found))

	found, err = repo.FindByIDForUpdate(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusApproved, found.Status)
	require.Len(t, found.Lines, 1)
	require.Len(t, found.Lines[0].Allocations, 1)
	assert.Equal(t, int64(11), found.Lines[0].Allocations[0].BatchID)

	require.NoError(t, repo.Delete(ctx, doc.ID))
	_, err = repo.FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, doc.ID), shared.ErrNotFound)
}

func TestGormDocumentRepository_List(t *testing.T) {
	repo := NewGormDocumentRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	for _, number := range []string{"SI-000001", "SI-000002", "SI-000003"} {
		require.NoError(t, repo.Create(ctx, saleDraft(t, number, 1)))
	}

	docs, total, err := repo.List(ctx, document.ListFilter{
		Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "number", OrderDir: "desc"},
		Kind:   document.KindSaleInvoice,
		Status: document.StatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "SI-000003", docs[0].Number)
	assert.Empty(t, docs[0].Lines)

	_, total, err = repo.List(ctx, document.ListFilter{Filter: shared.DefaultFilter(), Kind: document.KindPurchaseInvoice})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func newBatch(t *testing.T, medicineID int64, number string, qty int64, expiry time.Time) *inventory.MedicineBatch {
	t.Helper()
	b, err := inventory.NewMedicineBatch(medicineID, number, qty, expiry, decimal.NewFromInt(5), decimal.NewFromInt(8), repoNow)
	require.NoError(t, err)
	return b
}

func TestGormMedicineBatchRepository_Queries(t *testing.T) {
	repo := NewGormMedicineBatchRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	late := newBatch(t, 1, "LATE", 10, testutil.Date(2026, 9, 1))
	early := newBatch(t, 1, "EARLY", 10, testutil.Date(2026, 5, 1))
	held := newBatch(t, 1, "HELD", 10, testutil.Date(2026, 4, 1))
	other := newBatch(t, 2, "OTHER", 10, testutil.Date(2026, 4, 1))
	for _, b := range []*inventory.MedicineBatch{late, early, held, other} {
		require.NoError(t, repo.Create(ctx, b))
	}
	require.NoError(t, held.Quarantine(repoNow))
	require.NoError(t, repo.Save(ctx, held))

	candidates, err := repo.FindSellableCandidatesForUpdate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, late.ID, candidates[0].ID)
	assert.Equal(t, early.ID, candidates[1].ID)

	byMedicine, err := repo.FindByMedicine(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byMedicine, 3)
	assert.Equal(t, []string{"HELD", "EARLY", "LATE"},
		[]string{byMedicine[0].BatchNumber, byMedicine[1].BatchNumber, byMedicine[2].BatchNumber})

	quarantined, err := repo.FindByStatus(ctx, inventory.BatchStatusQuarantined)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, held.ID, quarantined[0].ID)

	locked, err := repo.FindByIDsForUpdate(ctx, []int64{other.ID, early.ID})
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, early.ID, locked[0].ID)

	found, err := repo.FindByID(ctx, early.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Date(2026, 5, 1).Equal(found.ExpiryDate))
	assert.True(t, decimal.NewFromInt(5).Equal(found.UnitCost))

	_, err = repo.FindByIDForUpdate(ctx, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormStockMovementRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormStockMovementRepository(db)
	ctx := context.Background()
	batchID := int64(3)

	requests := []inventory.RecordRequest{
		{MedicineID: 1, BatchID: &batchID, Kind: inventory.MovementKindPurchase, Quantity: 50,
			ReferenceKind: inventory.ReferencePurchaseInvoice, ReferenceID: 1},
		{MedicineID: 1, BatchID: &batchID, Kind: inventory.MovementKindSale, Quantity: -20,
			ReferenceKind: inventory.ReferenceSaleInvoice, ReferenceID: 2},
		{MedicineID: 1, BatchID: &batchID, Kind: inventory.MovementKindSale, Quantity: 20,
			ReferenceKind: inventory.ReferenceSaleInvoice, ReferenceID: 2, Reversal: true},
	}
	for i, req := range requests {
		m, err := inventory.NewStockMovement(req, repoNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, m))
		assert.NotZero(t, m.ID)
	}

	sum, err := repo.SumByBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), sum)

	bySale, err := repo.FindByReference(ctx, inventory.ReferenceSaleInvoice, 2)
	require.NoError(t, err)
	require.Len(t, bySale, 2)
	assert.False(t, bySale[0].Reversal)
	assert.True(t, bySale[1].Reversal)

	card, err := repo.FindForCard(ctx, 1, &batchID)
	require.NoError(t, err)
	assert.Len(t, card, 3)

	none, err := repo.SumByBatch(ctx, 404)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestGormAlertRepository(t *testing.T) {
	repo := NewGormAlertRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	subject := alert.Subject{BatchID: 5, MedicineID: 1, BatchNumber: "A-1", ExpiryDate: testutil.Date(2026, 3, 6), Remaining: 10}

	a, err := alert.NewAlert(alert.TypeExpiryOneWeek, shared.SeverityWarning, subject, repoNow, repoNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, a))
	require.NotZero(t, a.ID)

	exists, err := repo.ExistsForBatch(ctx, 5, alert.TypeExpiryOneWeek)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsForBatch(ctx, 5, alert.TypeExpired)
	require.NoError(t, err)
	assert.False(t, exists)

	dup, err := alert.NewAlert(alert.TypeExpiryOneWeek, shared.SeverityWarning, subject, repoNow, repoNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), alert.ErrDuplicateAlert)

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.MessageAR, found.MessageAR)
	require.NotNil(t, found.DaysRemaining)
	assert.Equal(t, 5, *found.DaysRemaining)

	require.NoError(t, found.MarkRead(repoNow))
	require.NoError(t, repo.Save(ctx, found))

	pending, total, err := repo.FindByStatus(ctx, alert.StatusPending, shared.Filter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, pending)

	read, total, err := repo.FindByStatus(ctx, alert.StatusRead, shared.Filter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, read, 1)

	found.ID = 999
	assert.ErrorIs(t, repo.Save(ctx, found), shared.ErrNotFound)
}
