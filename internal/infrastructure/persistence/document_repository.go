package persistence

import (
	"context"
	"errors"

	"github.com/pharmacy/backend/internal/domain/document"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements DocumentRepository using GORM.
// Lines and allocations live in their own tables and are written explicitly.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// FindByID finds a document with its lines and allocations
func (r *GormDocumentRepository) FindByID(ctx context.Context, id int64) (*document.Document, error) {
	return r.findOne(withLines(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByIDForUpdate finds and row-locks a document
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*document.Document, error) {
	return r.findOne(withLines(forUpdate(r.db.WithContext(ctx))), "id = ?", id)
}

// FindByNumber finds a document by its number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, number string) (*document.Document, error) {
	return r.findOne(withLines(r.db.WithContext(ctx)), "number = ?", number)
}

func (r *GormDocumentRepository) findOne(db *gorm.DB, query string, arg any) (*document.Document, error) {
	var model models.DocumentModel
	if err := db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns document headers matching the filter. Lines are not loaded.
func (r *GormDocumentRepository) List(ctx context.Context, filter document.ListFilter) ([]document.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.DocumentModel
	if err := applyPaging(query, filter.Filter, documentSort).Find(&list).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]document.Document, len(list))
	for i := range list {
		docs[i] = *list[i].ToDomain()
	}
	return docs, total, nil
}

// Create inserts the document and its lines, assigning all IDs
func (r *GormDocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	db := r.db.WithContext(ctx)
	model := models.DocumentModelFromDomain(doc)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	doc.ID = model.ID
	return r.insertLines(db, doc)
}

// Save updates the header and rewrites lines while the document is a Draft.
// For other statuses only allocations without an ID are inserted.
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(models.DocumentModelFromDomain(doc)).Error; err != nil {
		return err
	}

	if doc.Status == document.StatusDraft {
		if err := r.deleteLines(db, doc.ID); err != nil {
			return err
		}
		for i := range doc.Lines {
			doc.Lines[i].ID = 0
		}
		return r.insertLines(db, doc)
	}

	for i := range doc.Lines {
		if err := r.insertAllocations(db, &doc.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete hard-deletes a document with its lines
func (r *GormDocumentRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := r.deleteLines(db, id); err != nil {
		return err
	}
	result := db.Delete(&models.DocumentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NextNumber reserves the next sequence value for the kind under a row lock
func (r *GormDocumentRepository) NextNumber(ctx context.Context, kind document.Kind) (string, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DocumentSequenceModel{Kind: kind}).Error; err != nil {
		return "", err
	}

	var seq models.DocumentSequenceModel
	if err := forUpdate(db).First(&seq, "kind = ?", kind).Error; err != nil {
		return "", err
	}
	seq.LastValue++
	if err := db.Model(&models.DocumentSequenceModel{}).
		Where("kind = ?", kind).
		Update("last_value", seq.LastValue).Error; err != nil {
		return "", err
	}
	return document.FormatNumber(kind, seq.LastValue), nil
}

func (r *GormDocumentRepository) insertLines(db *gorm.DB, doc *document.Document) error {
	for i := range doc.Lines {
		line := &doc.Lines[i]
		model := models.DocumentLineModelFromDomain(doc.ID, line)
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		line.ID = model.ID
		line.DocumentID = doc.ID
		if err := r.insertAllocations(db, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *GormDocumentRepository) insertAllocations(db *gorm.DB, line *document.Line) error {
	for i := range line.Allocations {
		a := &line.Allocations[i]
		if a.ID != 0 {
			continue
		}
		model := &models.LineAllocationModel{LineID: line.ID, BatchID: a.BatchID, Quantity: a.Quantity}
		if err := db.Create(model).Error; err != nil {
			return err
		}
		a.ID = model.ID
		a.LineID = line.ID
	}
	return nil
}

func (r *GormDocumentRepository) deleteLines(db *gorm.DB, documentID int64) error {
	lineIDs := db.Model(&models.DocumentLineModel{}).Select("id").Where("document_id = ?", documentID)
	if err := db.Where("line_id IN (?)", lineIDs).Delete(&models.LineAllocationModel{}).Error; err != nil {
		return err
	}
	return db.Where("document_id = ?", documentID).Delete(&models.DocumentLineModel{}).Error
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ document.DocumentRepository = (*GormDocumentRepository)(nil)
