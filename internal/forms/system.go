package forms

import (
	"context"
	"log/slog"
	"maps"

	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/fault"
	"github.com/JaimeStill/form-intake/internal/objectstore"
)

// Store persists and queries documents by collection name.
// collections.Accessor satisfies it.
type Store interface {
	Find(ctx context.Context, name string, q database.Query) ([]database.Document, error)
	Save(ctx context.Context, name string, doc database.Document) (database.Document, error)
}

// Uploader stores attachment payloads and returns their URL.
// objectstore.Client satisfies it.
type Uploader interface {
	Put(ctx context.Context, req objectstore.UploadRequest) (string, error)
}

// System defines the form intake operations.
type System interface {
	// List returns every form matching filters.
	List(ctx context.Context, filters Filters) ([]Form, error)

	// Find returns the form with the given identifier.
	// Returns a FormNotFound error when no record matches.
	Find(ctx context.Context, id string) (*Form, error)

	// Validate checks a raw submission payload.
	Validate(data any) error

	// Save validates a submission, uploads its attachment if present,
	// and persists the record. A failed save does not remove an
	// attachment that was already uploaded.
	Save(ctx context.Context, sub Submission) (*Form, error)
}

type system struct {
	store    Store
	uploader Uploader
	logger   *slog.Logger
}

// New creates the form intake system.
func New(store Store, uploader Uploader, logger *slog.Logger) System {
	return &system{
		store:    store,
		uploader: uploader,
		logger:   logger.With("system", "forms"),
	}
}

func (s *system) List(ctx context.Context, filters Filters) ([]Form, error) {
	docs, err := s.store.Find(ctx, CollectionName, filters.Query())
	if err != nil {
		return nil, err
	}

	forms := make([]Form, 0, len(docs))
	for _, doc := range docs {
		forms = append(forms, formFromDocument(doc))
	}
	return forms, nil
}

func (s *system) Find(ctx context.Context, id string) (*Form, error) {
	docs, err := s.store.Find(ctx, CollectionName, database.Query{database.IDField: id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fault.FormNotFound()
	}

	form := formFromDocument(docs[0])
	return &form, nil
}

func (s *system) Validate(data any) error {
	return Validate(data)
}

func (s *system) Save(ctx context.Context, sub Submission) (*Form, error) {
	if err := Validate(sub.Data); err != nil {
		return nil, err
	}

	data, _ := asObject(sub.Data)
	doc := database.Document(maps.Clone(data))
	delete(doc, FieldAttachmentURL)

	var key, url string
	if a := sub.Attachment; a != nil {
		key = ObjectKey(doc, a)

		var err error
		url, err = s.uploader.Put(ctx, objectstore.UploadRequest{
			Key:           key,
			Payload:       a.Data,
			ContentType:   a.ContentType,
			ContentLength: int64(len(a.Data)),
		})
		if err != nil {
			return nil, err
		}
		doc[FieldAttachmentURL] = url
	}

	saved, err := s.store.Save(ctx, CollectionName, doc)
	if err != nil {
		if key != "" {
			s.logger.Warn("form record not saved after attachment upload", "key", key, "url", url, "error", err)
		}
		return nil, err
	}

	form := formFromDocument(saved)
	s.logger.Info("form saved", "id", form.ID, "attachment", key != "")
	return &form, nil
}
