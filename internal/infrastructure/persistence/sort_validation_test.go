package persistence

import (
	"testing"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"github.com/pharmacy/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestSortDirection(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC ", "ASC"},
		{"desc", "DESC"},
		{"ASC; DROP TABLE documents;--", "DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sortDirection(tt.input), "input %q", tt.input)
	}
}

func TestSortColumns(t *testing.T) {
	assert.Equal(t, "number", documentSort.column(" number "))
	assert.Equal(t, "expiry_date", alertSort.column("expiry_date"))
	assert.Equal(t, "id", alertSort.column("number"), "document column not sortable on alerts")

	for _, payload := range []string{
		"",
		"NUMBER",
		"id; DROP TABLE documents;--",
		"id' OR '1'='1",
		"id UNION SELECT * FROM accounts",
		"id, (SELECT balance FROM accounts)",
		"id\n; DROP TABLE alerts",
	} {
		assert.Equal(t, "id", documentSort.column(payload), "payload %q", payload)
	}
}

func TestApplyPaging(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	render := func(filter shared.Filter) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var list []models.AlertModel
			return applyPaging(tx.Model(&models.AlertModel{}), filter, alertSort).Find(&list)
		})
	}

	sql := render(shared.Filter{Page: 3, PageSize: 20, OrderBy: "severity", OrderDir: "asc"})
	assert.Contains(t, sql, "ORDER BY severity ASC,id ASC")
	assert.Contains(t, sql, "LIMIT 20 OFFSET 40")

	sql = render(shared.Filter{OrderBy: "severity desc; --"})
	assert.Contains(t, sql, "ORDER BY id DESC")
	assert.NotContains(t, sql, "LIMIT")
}
