// Package fault defines the closed set of error kinds produced by the
// data-source and form submission layers. Every error is a *Error tagged
// with a Kind and carrying its underlying cause; callers dispatch on Kind
// through KindOf or Is rather than on concrete types.
package fault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindDBError
	KindDBNotAvailable
	KindDBCollectionNotFound
	KindS3Error
	KindS3NotAvailable
	KindS3WriteError
	KindS3RequestTimeout
	KindInvalidFormDataObject
	KindInvalidFormDataFields
	KindFormNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindDBError:               "DBError",
	KindDBNotAvailable:        "DBNotAvailable",
	KindDBCollectionNotFound:  "DBCollectionNotFound",
	KindS3Error:               "S3Error",
	KindS3NotAvailable:        "S3NotAvailable",
	KindS3WriteError:          "S3WriteError",
	KindS3RequestTimeout:      "S3RequestTimeout",
	KindInvalidFormDataObject: "InvalidFormDataObject",
	KindInvalidFormDataFields: "InvalidFormDataFields",
	KindFormNotFound:          "FormNotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// InvalidForm reports whether the kind is a form validation failure.
func (k Kind) InvalidForm() bool {
	return k == KindInvalidFormDataObject || k == KindInvalidFormDataFields
}

// Error is an immutable, kind-tagged error value.
type Error struct {
	Kind  Kind
	Cause error

	// Collection names the unresolved collection for KindDBCollectionNotFound.
	Collection string

	// Fields lists missing field names, in check order, for KindInvalidFormDataFields.
	Fields []string

	// StatusCode is the object-store response status for KindS3WriteError.
	StatusCode int
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same Kind, so that errors.Is(err,
// &fault.Error{Kind: fault.KindDBNotAvailable}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DB wraps a generic document-store driver failure.
func DB(cause error) *Error {
	return &Error{Kind: KindDBError, Cause: cause}
}

// DBNotAvailable reports an operation attempted without a live connection.
func DBNotAvailable() *Error {
	return &Error{
		Kind:  KindDBNotAvailable,
		Cause: errors.New("DataBase is not available now"),
	}
}

// DBCollectionNotFound reports a collection that could not be resolved.
func DBCollectionNotFound(name string) *Error {
	return &Error{
		Kind:       KindDBCollectionNotFound,
		Cause:      fmt.Errorf("DataBase collection '%s' not found", name),
		Collection: name,
	}
}

// S3 wraps a generic object-store failure.
func S3(cause error) *Error {
	return &Error{Kind: KindS3Error, Cause: cause}
}

// S3NotAvailable reports an upload attempted without an installed client.
func S3NotAvailable() *Error {
	return &Error{
		Kind:  KindS3NotAvailable,
		Cause: errors.New("File storage is not available now"),
	}
}

// S3Write reports a non-success response from the object store.
func S3Write(statusCode int, message string) *Error {
	return &Error{
		Kind:       KindS3WriteError,
		Cause:      fmt.Errorf("File storage write failed with status %d: %s", statusCode, message),
		StatusCode: statusCode,
	}
}

// S3RequestTimeout reports an upload that exceeded its deadline.
func S3RequestTimeout(timeout time.Duration) *Error {
	return &Error{
		Kind:  KindS3RequestTimeout,
		Cause: fmt.Errorf("File storage request timed out after %s", timeout),
	}
}

// InvalidFormDataObject reports a form payload that is not a key/value object.
func InvalidFormDataObject() *Error {
	return &Error{
		Kind:  KindInvalidFormDataObject,
		Cause: errors.New("Invalid Form Data Object"),
	}
}

// InvalidFormDataFields reports missing required fields.
func InvalidFormDataFields(fields ...string) *Error {
	return &Error{
		Kind:   KindInvalidFormDataFields,
		Cause:  fmt.Errorf("Form Data contains invalid fields: %s", strings.Join(fields, ", ")),
		Fields: append([]string(nil), fields...),
	}
}

// FormNotFound reports a lookup by identifier that matched no record.
func FormNotFound() *Error {
	return &Error{
		Kind:  KindFormNotFound,
		Cause: errors.New("Form not found"),
	}
}
