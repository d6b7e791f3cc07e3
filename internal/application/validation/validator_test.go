package validation

import (
	"testing"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type sampleLine struct {
	MedicineID int64 `validate:"required,gt=0"`
	Quantity   int64 `validate:"required,gt=0"`
}

type sampleCommand struct {
	Reason string       `json:"reason" validate:"required,max=10"`
	Lines  []sampleLine `json:"lines" validate:"required,min=1,dive"`
}

func TestStruct(t *testing.T) {
	t.Run("valid command", func(t *testing.T) {
		err := Struct(sampleCommand{Reason: "ok", Lines: []sampleLine{{MedicineID: 1, Quantity: 2}}})
		assert.NoError(t, err)
	})

	t.Run("reports every failed field as validation error", func(t *testing.T) {
		err := Struct(sampleCommand{Reason: "", Lines: []sampleLine{{MedicineID: 1, Quantity: 0}}})
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "reason: is required")
		assert.Contains(t, err.Error(), "Quantity: is required")
	})

	t.Run("string length", func(t *testing.T) {
		err := Struct(sampleCommand{Reason: "far too long reason", Lines: []sampleLine{{MedicineID: 1, Quantity: 1}}})
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "at most 10 characters")
	})
}
