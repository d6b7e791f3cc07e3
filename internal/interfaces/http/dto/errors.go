package dto

import (
	"net/http"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// Error codes
// Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal             = "ERR_INTERNAL"
	ErrCodeBadRequest           = "ERR_BAD_REQUEST"
	ErrCodeValidation           = "ERR_VALIDATION"
	ErrCodeNotFound             = "ERR_NOT_FOUND"
	ErrCodeConflict             = "ERR_CONFLICT"
	ErrCodeUnavailable          = "ERR_UNAVAILABLE"
	ErrCodeInsufficientStock    = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition    = "ERR_INVALID_TRANSITION"
	ErrCodeReturnTargetSold     = "ERR_RETURN_TARGET_ALREADY_SOLD"
	ErrCodeCancellationConflict = "ERR_CANCELLATION_CONFLICT"
	ErrCodeReconciliation       = "ERR_RECONCILIATION"
	ErrCodeScanAlreadyRequested = "ERR_SCAN_ALREADY_REQUESTED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeUnavailable:          http.StatusServiceUnavailable,
	ErrCodeInsufficientStock:    http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:    http.StatusUnprocessableEntity,
	ErrCodeReturnTargetSold:     http.StatusUnprocessableEntity,
	ErrCodeCancellationConflict: http.StatusConflict,
	ErrCodeReconciliation:       http.StatusInternalServerError,
	ErrCodeScanAlreadyRequested: http.StatusConflict,
}

var kindCodes = map[shared.ErrorKind]string{
	shared.KindValidation:              ErrCodeValidation,
	shared.KindNotFound:                ErrCodeNotFound,
	shared.KindInsufficientStock:       ErrCodeInsufficientStock,
	shared.KindInvalidTransition:       ErrCodeInvalidTransition,
	shared.KindReturnTargetAlreadySold: ErrCodeReturnTargetSold,
	shared.KindCancellationConflict:    ErrCodeCancellationConflict,
	shared.KindReconciliation:          ErrCodeReconciliation,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeForError returns the API error code for err. Errors that are not domain
// errors are internal.
func CodeForError(err error) string {
	if code, ok := kindCodes[shared.KindOf(err)]; ok {
		return code
	}
	return ErrCodeInternal
}
