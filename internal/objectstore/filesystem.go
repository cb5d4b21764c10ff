package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidKey       = errors.New("objectstore: invalid key")
	errPermissionDenied = errors.New("objectstore: permission denied")
)

// filesystem stores objects as files under a base path, with keys
// mapping directly to relative file paths.
type filesystem struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

func newFilesystem(ctx context.Context, cfg *Config, logger *slog.Logger) (Backend, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create base_path: %w", err)
	}

	return &filesystem{
		basePath: absPath,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger.With("backend", BackendFilesystem, "base_path", absPath),
	}, nil
}

func (f *filesystem) Put(ctx context.Context, key string, header http.Header) Request {
	rctx, cancel := context.WithCancel(ctx)
	path, err := f.fullPath(key)

	return &fileRequest{
		ctx:    rctx,
		cancel: cancel,
		path:   path,
		err:    err,
		url:    f.url(key, path),
	}
}

func (f *filesystem) Close() error {
	return nil
}

func (f *filesystem) url(key, path string) string {
	if f.baseURL != "" {
		return f.baseURL + "/" + escapeKey(key)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func (f *filesystem) fullPath(key string) (string, error) {
	if key == "" {
		return "", errInvalidKey
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", errInvalidKey
	}

	fullPath := filepath.Join(f.basePath, cleaned)

	if !strings.HasPrefix(fullPath, f.basePath+string(filepath.Separator)) {
		return "", errInvalidKey
	}

	return fullPath, nil
}

type fileRequest struct {
	ctx    context.Context
	cancel context.CancelFunc
	path   string
	err    error
	url    string
}

func (r *fileRequest) End(payload []byte) (Response, error) {
	defer r.cancel()

	if r.err != nil {
		return statusResponse(r.err)
	}

	if err := r.write(payload); err != nil {
		return statusResponse(err)
	}
	return Response{StatusCode: http.StatusOK, Status: http.StatusText(http.StatusOK)}, nil
}

func (r *fileRequest) write(payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := r.ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (r *fileRequest) Abort() {
	r.cancel()
}

func (r *fileRequest) URL() string {
	return r.url
}

func statusResponse(err error) (Response, error) {
	switch {
	case errors.Is(err, errInvalidKey):
		return Response{StatusCode: http.StatusBadRequest, Status: err.Error()}, nil
	case errors.Is(err, errPermissionDenied), errors.Is(err, fs.ErrPermission):
		return Response{StatusCode: http.StatusForbidden, Status: errPermissionDenied.Error()}, nil
	default:
		return Response{}, err
	}
}
