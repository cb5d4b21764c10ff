package forms

import (
	"net/url"

	"github.com/JaimeStill/form-intake/internal/database"
)

// Filters contains optional equality criteria for form queries.
type Filters struct {
	FirstName *string
	LastName  *string
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get(FieldFirstName); v != "" {
		f.FirstName = &v
	}
	if v := values.Get(FieldLastName); v != "" {
		f.LastName = &v
	}
	return f
}

// Query converts the filters into a document query.
func (f Filters) Query() database.Query {
	q := database.Query{}
	if f.FirstName != nil {
		q[FieldFirstName] = *f.FirstName
	}
	if f.LastName != nil {
		q[FieldLastName] = *f.LastName
	}
	return q
}
