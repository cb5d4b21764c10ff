package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

type gcs struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	baseURL string
	logger  *slog.Logger
}

func newGCS(ctx context.Context, cfg *Config, logger *slog.Logger) (Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	// Token refresh uses the construction context for the client lifetime.
	client, err := storage.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = gcsPublicHost + "/" + cfg.Bucket
	}

	return &gcs{
		client:  client,
		bucket:  client.Bucket(cfg.Bucket),
		baseURL: baseURL,
		logger:  logger.With("backend", BackendGCS, "bucket", cfg.Bucket),
	}, nil
}

func (g *gcs) Put(ctx context.Context, key string, header http.Header) Request {
	wctx, cancel := context.WithCancel(ctx)

	w := g.bucket.Object(key).NewWriter(wctx)
	w.ContentType = header.Get("Content-Type")

	return &gcsRequest{
		writer: w,
		cancel: cancel,
		url:    g.baseURL + "/" + escapeKey(key),
	}
}

func (g *gcs) Close() error {
	return g.client.Close()
}

type gcsRequest struct {
	writer *storage.Writer
	cancel context.CancelFunc
	url    string
}

func (r *gcsRequest) End(payload []byte) (Response, error) {
	defer r.cancel()

	if _, err := r.writer.Write(payload); err != nil {
		r.writer.Close()
		return gcsResponse(err)
	}
	if err := r.writer.Close(); err != nil {
		return gcsResponse(err)
	}
	return Response{StatusCode: http.StatusOK, Status: http.StatusText(http.StatusOK)}, nil
}

func (r *gcsRequest) Abort() {
	r.cancel()
}

func (r *gcsRequest) URL() string {
	return r.url
}

// gcsResponse converts API errors into a status response and leaves
// everything else as a transport failure.
func gcsResponse(err error) (Response, error) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return Response{StatusCode: gerr.Code, Status: msg}, nil
	}
	return Response{}, err
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
