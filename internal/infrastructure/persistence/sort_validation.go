package persistence

import (
	"strings"

	"github.com/pharmacy/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// sortColumns whitelists the columns a list query may order by. Anything else,
// including injection attempts, falls back to the default column.
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := make(map[string]bool, len(columns)+1)
	allowed[fallback] = true
	for _, c := range columns {
		allowed[c] = true
	}
	return sortColumns{allowed: allowed, fallback: fallback}
}

var (
	documentSort = newSortColumns("id", "created_at", "updated_at", "number", "kind", "status", "date", "total_amount")
	alertSort    = newSortColumns("id", "created_at", "updated_at", "type", "severity", "expiry_date")
)

// column returns the requested column when whitelisted, else the fallback
func (s sortColumns) column(requested string) string {
	if c := strings.TrimSpace(requested); s.allowed[c] {
		return c
	}
	return s.fallback
}

// sortDirection normalises to ASC or DESC; unknown input sorts descending
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// applyPaging orders by a whitelisted column with id as the tie-breaker and
// applies the page window
func applyPaging(query *gorm.DB, filter shared.Filter, cols sortColumns) *gorm.DB {
	field := cols.column(filter.OrderBy)
	dir := sortDirection(filter.OrderDir)
	query = query.Order(field + " " + dir)
	if field != "id" {
		query = query.Order("id " + dir)
	}
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
