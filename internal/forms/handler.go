package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JaimeStill/form-intake/pkg/handlers"
	"github.com/JaimeStill/form-intake/pkg/routes"
)

// AttachmentField is the multipart file field carrying an attachment.
const AttachmentField = "attachment"

const defaultMaxUploadSize = 100 << 20

// Handler provides HTTP endpoints for form submission and lookup.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a form handler. Uploads larger than maxUploadSize
// bytes are rejected; a non-positive limit uses the 100MB default.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "forms"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the form endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/forms",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submission(w, r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if obj, ok := asObject(sub.Data); ok {
		sanitizeFields(obj)
	}

	result, err := h.sys.Save(r.Context(), sub)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) submission(w http.ResponseWriter, r *http.Request) (Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.multipartSubmission(r)
	}

	var data any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return Submission{}, fmt.Errorf("decode body: %w", err)
	}
	return Submission{Data: data}, nil
}

func (h *Handler) multipartSubmission(r *http.Request) (Submission, error) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return Submission{}, fmt.Errorf("parse multipart form: %w", err)
	}

	data := make(map[string]any, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}
	sub := Submission{Data: data}

	file, header, err := r.FormFile(AttachmentField)
	if errors.Is(err, http.ErrMissingFile) {
		return sub, nil
	}
	if err != nil {
		return Submission{}, fmt.Errorf("read attachment: %w", err)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return Submission{}, fmt.Errorf("read attachment: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(payload)
	}

	sub.Attachment = &Attachment{
		OriginalName: header.Filename,
		ContentType:  contentType,
		Data:         payload,
	}
	return sub, nil
}
