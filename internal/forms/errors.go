package forms

import (
	"net/http"

	"github.com/JaimeStill/form-intake/internal/fault"
)

// MapHTTPStatus maps domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	kind := fault.KindOf(err)
	switch {
	case kind.InvalidForm():
		return http.StatusBadRequest
	case kind == fault.KindFormNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
