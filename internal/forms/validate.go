package forms

import (
	"math"

	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/fault"
)

// Validate checks that data is a key/value object carrying every required
// field with a non-empty value. A nil result means the data is valid.
func Validate(data any) error {
	obj, ok := asObject(data)
	if !ok {
		return fault.InvalidFormDataObject()
	}

	var missing []string
	for _, field := range RequiredFields {
		if empty(obj[field]) {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fault.InvalidFormDataFields(missing...)
	}
	return nil
}

func asObject(data any) (map[string]any, bool) {
	switch v := data.(type) {
	case map[string]any:
		return v, v != nil
	case database.Document:
		return v, v != nil
	default:
		return nil, false
	}
}

// empty reports values that carry no usable content: nil, "", false,
// zero and NaN.
func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0 || math.IsNaN(x)
	case int:
		return x == 0
	case int64:
		return x == 0
	default:
		return false
	}
}
