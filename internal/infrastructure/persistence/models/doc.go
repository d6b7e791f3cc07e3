// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of
// ORM concerns.
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - inventory.go: medicine batches and stock movements
// - document.go: trade documents, lines, allocations and number sequences
// - finance.go: accounts and financial transactions
// - alert.go: batch alerts
package models
