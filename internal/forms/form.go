// Package forms implements form submission intake: validation, attachment
// upload and persistence of form records.
package forms

import (
	"fmt"

	"github.com/JaimeStill/form-intake/internal/database"
)

// CollectionName is the document collection holding form records.
const CollectionName = "forms"

// Form record field names.
const (
	FieldFirstName     = "firstName"
	FieldLastName      = "lastName"
	FieldAttachmentURL = "attachmentUrl"
)

// RequiredFields lists the fields every submission must carry, in the
// order they are reported when missing.
var RequiredFields = []string{FieldFirstName, FieldLastName}

// Form is a persisted form record.
type Form struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

// Attachment is a binary file submitted with a form.
type Attachment struct {
	OriginalName string
	ContentType  string
	Data         []byte
}

// Submission is an unvalidated form payload with an optional attachment.
type Submission struct {
	Data       any
	Attachment *Attachment
}

// ObjectKey derives the storage key for an attachment from the
// submitter's names and the attachment's original file name.
func ObjectKey(data map[string]any, a *Attachment) string {
	return fmt.Sprintf("%v-%v-%s", data[FieldFirstName], data[FieldLastName], a.OriginalName)
}

func formFromDocument(doc database.Document) Form {
	text := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}

	return Form{
		ID:            doc.ID(),
		FirstName:     text(FieldFirstName),
		LastName:      text(FieldLastName),
		AttachmentURL: text(FieldAttachmentURL),
	}
}
