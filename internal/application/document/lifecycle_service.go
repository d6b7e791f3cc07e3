package document

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/application/validation"
	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LifecycleService drives documents through Draft, Approved and Cancelled.
// Approval and cancellation apply their stock and money effects in the same
// transaction as the status change.
type LifecycleService struct {
	scope     uow.TransactionScope
	allocator inventory.Allocator
	publisher shared.EventPublisher
	clock     shared.Clock
	accountID int64
	logger    *zap.Logger
}

// NewLifecycleService creates a new LifecycleService. Document money is posted to accountID.
func NewLifecycleService(
	scope uow.TransactionScope,
	allocator inventory.Allocator,
	publisher shared.EventPublisher,
	clock shared.Clock,
	accountID int64,
	logger *zap.Logger,
) *LifecycleService {
	if allocator == nil {
		allocator = inventory.NewFEFOAllocator()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &LifecycleService{
		scope:     scope,
		allocator: allocator,
		publisher: publisher,
		clock:     clock,
		accountID: accountID,
		logger:    logger,
	}
}

// CreateDraft creates a Draft document with the next number of its kind
func (s *LifecycleService) CreateDraft(ctx context.Context, in document.DraftInput) (*document.Document, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = s.createDraft(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document draft created",
		zap.Int64("document_id", doc.ID),
		zap.String("number", doc.Number),
		zap.String("kind", doc.Kind.String()),
		zap.Int("lines", len(doc.Lines)),
	)
	return doc, nil
}

func (s *LifecycleService) createDraft(ctx context.Context, repos uow.Repositories, in document.DraftInput) (*document.Document, error) {
	if !in.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unknown document kind: %s", in.Kind))
	}
	number, err := repos.Documents().NextNumber(ctx, in.Kind)
	if err != nil {
		return nil, err
	}
	doc, err := document.NewDraft(number, in, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := repos.Documents().Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReplaceLines swaps the lines of a Draft
func (s *LifecycleService) ReplaceLines(ctx context.Context, id int64, lines []document.LineInput) (*document.Document, error) {
	for i := range lines {
		if err := validation.Struct(lines[i]); err != nil {
			return nil, err
		}
	}

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = repos.Documents().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := doc.ReplaceLines(lines, s.clock.Now()); err != nil {
			return err
		}
		return repos.Documents().Save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns a document with its lines and allocations
func (s *LifecycleService) Get(ctx context.Context, id int64) (*document.Document, error) {
	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = repos.Documents().FindByID(ctx, id)
		return err
	})
	return doc, err
}

// List returns documents matching the filter with the total count
func (s *LifecycleService) List(ctx context.Context, filter document.ListFilter) ([]document.Document, int64, error) {
	var (
		docs  []document.Document
		total int64
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		docs, total, err = repos.Documents().List(ctx, filter)
		return err
	})
	return docs, total, err
}

// DeleteDraft hard-deletes a Draft. It has no stock or money effect.
func (s *LifecycleService) DeleteDraft(ctx context.Context, id int64) error {
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := doc.EnsureDeletable(); err != nil {
			return err
		}
		return repos.Documents().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Document draft deleted", zap.Int64("document_id", id))
	return nil
}

// Approve applies a Draft's stock and money effects and moves it to Approved
func (s *LifecycleService) Approve(ctx context.Context, id, approverID int64) (*document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "approve", telemetry.SpanAttrDocumentID, id)
	defer span.End()

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = repos.Documents().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.approve(ctx, repos, doc, approverID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Document approval failed", zap.Int64("document_id", id), zap.Error(err))
		return nil, err
	}

	s.afterCommit(ctx, doc, "Document approved")
	return doc, nil
}

// CreateAndApprove creates a Draft and approves it in one transaction
func (s *LifecycleService) CreateAndApprove(ctx context.Context, in document.DraftInput, approverID int64) (*document.Document, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "create_and_approve",
		telemetry.SpanAttrDocumentKind, in.Kind.String())
	defer span.End()

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = s.createDraft(ctx, repos, in)
		if err != nil {
			return err
		}
		return s.approve(ctx, repos, doc, approverID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, doc, "Document created and approved")
	return doc, nil
}

func (s *LifecycleService) approve(ctx context.Context, repos uow.Repositories, doc *document.Document, approverID int64) error {
	if err := doc.EnsureApprovable(); err != nil {
		return err
	}
	if approverID <= 0 {
		return shared.NewDomainError("INVALID_USER", "Approver ID must be positive")
	}

	now := s.clock.Now()
	effects := &stockEffects{
		service: s,
		repos:   repos,
		ledger:  inventory.NewStockLedger(repos.Batches(), repos.Movements(), s.clock),
		locked:  make(map[int64]*inventory.MedicineBatch),
		doc:     doc,
		today:   shared.Day(now),
	}

	var err error
	switch doc.Kind {
	case document.KindPurchaseInvoice:
		err = effects.receivePurchase(ctx)
	case document.KindSaleInvoice:
		err = effects.allocateSale(ctx)
	case document.KindPurchaseReturn:
		err = effects.returnToSupplier(ctx)
	case document.KindSalesReturn:
		err = effects.returnFromCustomer(ctx)
	default:
		err = shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unknown document kind: %s", doc.Kind))
	}
	if err != nil {
		return err
	}

	if !doc.TotalAmount.IsZero() {
		id := doc.ID
		ledger := finance.NewLedger(repos.Accounts(), repos.Transactions(), s.clock)
		if _, err := ledger.Post(ctx, s.accountID, finance.PostRequest{
			Type:        doc.Kind.TransactionType(),
			Amount:      doc.SignedAmount(),
			Description: fmt.Sprintf("%s approved", doc.Number),
			DocumentID:  &id,
		}); err != nil {
			return err
		}
	}

	if err := doc.Approve(approverID, now); err != nil {
		return err
	}
	return repos.Documents().Save(ctx, doc)
}

// Cancel reverses an Approved document's stock and money effects and moves it to Cancelled
func (s *LifecycleService) Cancel(ctx context.Context, id, cancellerID int64, reason string) (*document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "cancel", telemetry.SpanAttrDocumentID, id)
	defer span.End()

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = repos.Documents().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.cancel(ctx, repos, doc, cancellerID, reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Document cancellation failed", zap.Int64("document_id", id), zap.Error(err))
		return nil, err
	}

	s.afterCommit(ctx, doc, "Document cancelled")
	return doc, nil
}

func (s *LifecycleService) cancel(ctx context.Context, repos uow.Repositories, doc *document.Document, cancellerID int64, reason string) error {
	if err := doc.EnsureCancellable(); err != nil {
		return err
	}

	all, err := repos.Movements().FindByReference(ctx, doc.Kind.ReferenceKind(), doc.ID)
	if err != nil {
		return err
	}
	movements := make([]inventory.StockMovement, 0, len(all))
	perBatch := make(map[int64]int64)
	lastOwn := make(map[int64]int64)
	for _, m := range all {
		if m.Reversal {
			continue
		}
		movements = append(movements, m)
		if m.BatchID != nil {
			perBatch[*m.BatchID] += m.Quantity
			lastOwn[*m.BatchID] = max(lastOwn[*m.BatchID], m.ID)
		}
	}

	ids := make([]int64, 0, len(perBatch))
	for id := range perBatch {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	locked, err := repos.Batches().FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return err
	}
	batches := make(map[int64]*inventory.MedicineBatch, len(locked))
	for _, b := range locked {
		batches[b.ID] = b
	}

	for _, id := range ids {
		b, ok := batches[id]
		if !ok {
			return shared.NewKindError(shared.KindNotFound, "BATCH_NOT_FOUND", fmt.Sprintf("Batch %d not found", id))
		}
		consumedLater := false
		if doc.Kind == document.KindSaleInvoice && b.RemainingQuantity == 0 {
			if consumedLater, err = drainedAfter(ctx, repos.Movements(), b, lastOwn[id]); err != nil {
				return err
			}
		}
		if err := checkCancellable(doc, b, perBatch[id], consumedLater); err != nil {
			return err
		}
	}

	notes := fmt.Sprintf("Cancellation of %s: %s", doc.Number, reason)
	stock := inventory.NewStockLedger(repos.Batches(), repos.Movements(), s.clock)
	if err := stock.Reverse(ctx, movements, batches, notes); err != nil {
		return err
	}

	txs, err := repos.Transactions().FindByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	ledger := finance.NewLedger(repos.Accounts(), repos.Transactions(), s.clock)
	if err := ledger.Reverse(ctx, txs, notes); err != nil {
		return err
	}

	if err := doc.Cancel(cancellerID, reason, s.clock.Now()); err != nil {
		return err
	}
	return repos.Documents().Save(ctx, doc)
}

// drainedAfter reports whether an outbound movement recorded after lastOwn took stock
// from the batch. A sale that emptied the batch itself is not drained by anyone else.
func drainedAfter(ctx context.Context, movements inventory.MovementRepository, b *inventory.MedicineBatch, lastOwn int64) (bool, error) {
	card, err := movements.FindForCard(ctx, b.MedicineID, &b.ID)
	if err != nil {
		return false, err
	}
	for _, m := range card {
		if m.ID > lastOwn && m.Quantity < 0 {
			return true, nil
		}
	}
	return false, nil
}

// checkCancellable applies the per-kind conflict rules to one batch. moved is the signed
// sum the document's movements applied to the batch; consumedLater is set when a later
// movement left the batch empty.
func checkCancellable(doc *document.Document, b *inventory.MedicineBatch, moved int64, consumedLater bool) error {
	conflict := func(format string, args ...any) error {
		return shared.NewKindError(shared.KindCancellationConflict, "CANCELLATION_CONFLICT",
			fmt.Sprintf("Cannot cancel %s: ", doc.Number)+fmt.Sprintf(format, args...))
	}

	switch doc.Kind {
	case document.KindSaleInvoice:
		restored := -moved
		if b.Status.IsWrittenOff() {
			return conflict("batch %s is %s", b.BatchNumber, b.Status)
		}
		if consumedLater {
			return conflict("batch %s was fully consumed by later movements", b.BatchNumber)
		}
		if b.SoldQuantity < restored {
			return conflict("batch %s has %d sold units, %d would be restored", b.BatchNumber, b.SoldQuantity, restored)
		}
	case document.KindPurchaseInvoice, document.KindSalesReturn:
		if b.RemainingQuantity < moved {
			return conflict("batch %s holds %d units, %d were received", b.BatchNumber, b.RemainingQuantity, moved)
		}
	case document.KindPurchaseReturn:
		if b.Status.IsWrittenOff() {
			return conflict("batch %s is %s", b.BatchNumber, b.Status)
		}
	}
	return nil
}

func (s *LifecycleService) afterCommit(ctx context.Context, doc *document.Document, msg string) {
	s.logger.Info(msg,
		zap.Int64("document_id", doc.ID),
		zap.String("number", doc.Number),
		zap.String("kind", doc.Kind.String()),
		zap.String("status", doc.Status.String()),
		zap.String("total", doc.TotalAmount.StringFixed(2)),
	)

	events := doc.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish document events", zap.Int64("document_id", doc.ID), zap.Error(err))
	}
}

// stockEffects applies one document's approval to the stock ledger. Every batch it
// touches is locked once and cached so later lines see earlier lines' effects.
type stockEffects struct {
	service *LifecycleService
	repos   uow.Repositories
	ledger  *inventory.StockLedger
	locked  map[int64]*inventory.MedicineBatch
	doc     *document.Document
	today   time.Time
}

func (e *stockEffects) lock(ctx context.Context, id int64) (*inventory.MedicineBatch, error) {
	if b, ok := e.locked[id]; ok {
		return b, nil
	}
	b, err := e.repos.Batches().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	e.locked[id] = b
	return b, nil
}

func (e *stockEffects) record(ctx context.Context, line *document.Line, batch *inventory.MedicineBatch, quantity int64) error {
	lineID := line.ID
	_, err := e.ledger.Apply(ctx, batch, inventory.RecordRequest{
		MedicineID:    line.MedicineID,
		Kind:          e.doc.Kind.MovementKind(),
		Quantity:      quantity,
		ReferenceKind: e.doc.Kind.ReferenceKind(),
		ReferenceID:   e.doc.ID,
		SourceLineID:  &lineID,
		Notes:         e.doc.Number,
	})
	if err != nil {
		return err
	}
	if quantity < 0 {
		quantity = -quantity
	}
	line.Allocations = append(line.Allocations, document.LineAllocation{
		LineID:   line.ID,
		BatchID:  batch.ID,
		Quantity: quantity,
	})
	return nil
}

func (e *stockEffects) batchFor(ctx context.Context, line *document.Line) (*inventory.MedicineBatch, error) {
	b, err := e.lock(ctx, *line.BatchID)
	if err != nil {
		return nil, err
	}
	if b.MedicineID != line.MedicineID {
		return nil, shared.NewDomainError("MEDICINE_MISMATCH",
			fmt.Sprintf("Batch %s belongs to medicine %d, not %d", b.BatchNumber, b.MedicineID, line.MedicineID))
	}
	return b, nil
}

func (e *stockEffects) receivePurchase(ctx context.Context) error {
	now := e.service.clock.Now()
	for i := range e.doc.Lines {
		line := &e.doc.Lines[i]
		if !line.ExpiryDate.After(e.today) {
			return shared.NewDomainError("ALREADY_EXPIRED",
				fmt.Sprintf("Batch %s expires on %s and cannot be received", line.BatchNumber, line.ExpiryDate.Format("2006-01-02")))
		}
		batch, err := inventory.NewMedicineBatch(line.MedicineID, line.BatchNumber, line.Quantity,
			*line.ExpiryDate, line.UnitPrice, line.SalePrice, now)
		if err != nil {
			return err
		}
		docID := e.doc.ID
		batch.SourceDocumentID = &docID
		if err := e.repos.Batches().Create(ctx, batch); err != nil {
			return err
		}
		e.locked[batch.ID] = batch
		if err := e.record(ctx, line, batch, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (e *stockEffects) allocateSale(ctx context.Context) error {
	// Lock FEFO candidates per medicine in ascending medicine order, then explicit
	// batches in ascending ID order.
	var medicines, explicit []int64
	seen := make(map[int64]bool)
	for i := range e.doc.Lines {
		line := &e.doc.Lines[i]
		if line.BatchID != nil {
			explicit = append(explicit, *line.BatchID)
			continue
		}
		if !seen[line.MedicineID] {
			seen[line.MedicineID] = true
			medicines = append(medicines, line.MedicineID)
		}
	}
	sort.Slice(medicines, func(i, j int) bool { return medicines[i] < medicines[j] })
	sort.Slice(explicit, func(i, j int) bool { return explicit[i] < explicit[j] })

	candidates := make(map[int64][]*inventory.MedicineBatch, len(medicines))
	for _, medicineID := range medicines {
		batches, err := e.repos.Batches().FindSellableCandidatesForUpdate(ctx, medicineID)
		if err != nil {
			return err
		}
		for j, b := range batches {
			if cached, ok := e.locked[b.ID]; ok {
				batches[j] = cached
				continue
			}
			e.locked[b.ID] = b
		}
		candidates[medicineID] = batches
	}
	for _, id := range explicit {
		if _, err := e.lock(ctx, id); err != nil {
			return err
		}
	}

	for i := range e.doc.Lines {
		line := &e.doc.Lines[i]
		if line.BatchID != nil {
			batch, err := e.batchFor(ctx, line)
			if err != nil {
				return err
			}
			if !batch.IsSellableOn(e.today) {
				return shared.NewKindError(shared.KindInsufficientStock, "BATCH_NOT_SELLABLE",
					fmt.Sprintf("Batch %s is not sellable (status %s, %d remaining, expires %s)",
						batch.BatchNumber, batch.Status, batch.RemainingQuantity, batch.ExpiryDate.Format("2006-01-02")))
			}
			if err := e.record(ctx, line, batch, -line.Quantity); err != nil {
				return err
			}
			continue
		}

		plan, err := e.service.allocator.Allocate(line.MedicineID, line.Quantity, e.today, candidates[line.MedicineID])
		if err != nil {
			return err
		}
		for _, a := range plan.Allocations {
			if err := e.record(ctx, line, e.locked[a.BatchID], -a.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *stockEffects) returnToSupplier(ctx context.Context) error {
	for i := range e.doc.Lines {
		line := &e.doc.Lines[i]
		batch, err := e.batchFor(ctx, line)
		if err != nil {
			return err
		}
		if batch.HasSoldUnits() {
			return shared.NewKindError(shared.KindReturnTargetAlreadySold, "BATCH_ALREADY_SOLD",
				fmt.Sprintf("Batch %s has %d units sold and cannot be returned to the supplier", batch.BatchNumber, batch.SoldQuantity))
		}
		if batch.RemainingQuantity < line.Quantity {
			return shared.NewKindError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
				fmt.Sprintf("Batch %s has %d units, cannot return %d", batch.BatchNumber, batch.RemainingQuantity, line.Quantity))
		}
		if err := e.record(ctx, line, batch, -line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (e *stockEffects) returnFromCustomer(ctx context.Context) error {
	for i := range e.doc.Lines {
		line := &e.doc.Lines[i]
		batch, err := e.batchFor(ctx, line)
		if err != nil {
			return err
		}
		if batch.Status.IsWrittenOff() {
			return shared.NewKindError(shared.KindInvalidTransition, "BATCH_WRITTEN_OFF",
				fmt.Sprintf("Batch %s is %s and cannot take returns", batch.BatchNumber, batch.Status))
		}
		if line.Quantity > batch.SoldQuantity {
			return shared.NewDomainError("RETURN_EXCEEDS_SOLD",
				fmt.Sprintf("Batch %s has %d sold units, cannot take back %d", batch.BatchNumber, batch.SoldQuantity, line.Quantity))
		}
		if err := e.record(ctx, line, batch, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
