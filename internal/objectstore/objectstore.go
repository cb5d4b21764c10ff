// Package objectstore uploads attachments to object storage. A Client
// holds one installed Backend and bounds every upload by the configured
// timeout, aborting requests that do not answer in time.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/form-intake/internal/fault"
	"github.com/jonboulle/clockwork"
)

// ErrGetUnsupported is the cause of every Client.Get failure.
var ErrGetUnsupported = errors.New("objectstore: get is not supported")

// UploadRequest describes one object to store.
type UploadRequest struct {
	Key           string
	Payload       []byte
	ContentType   string
	ContentLength int64
}

// Response is the status a backend reports for a completed request.
type Response struct {
	StatusCode int
	Status     string
}

// Request is a single in-flight upload.
type Request interface {
	// End sends payload and waits for the backend's response. A non-nil
	// error reports a transport failure.
	End(payload []byte) (Response, error)

	// Abort cancels the request. Pending End calls return promptly.
	Abort()

	// URL is the public location of the object once stored.
	URL() string
}

// Backend opens upload requests against a storage service.
type Backend interface {
	Put(ctx context.Context, key string, header http.Header) Request
	Close() error
}

// Factory builds a Backend from configuration.
type Factory func(ctx context.Context, cfg *Config, logger *slog.Logger) (Backend, error)

type handle struct {
	backend Backend
	timeout time.Duration
}

type outcome struct {
	url string
	err error
}

// Client is the process-wide object storage client.
type Client struct {
	clock     clockwork.Clock
	logger    *slog.Logger
	factories map[string]Factory

	current atomic.Pointer[handle]
	mu      sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the clock that bounds upload time.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) {
		cl.clock = c
	}
}

// WithBackend registers factory under name, replacing any built-in
// backend of the same name.
func WithBackend(name string, factory Factory) Option {
	return func(cl *Client) {
		cl.factories[name] = factory
	}
}

// New creates a Client with no installed backend.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		clock:  clockwork.NewRealClock(),
		logger: logger.With("system", "objectstore"),
		factories: map[string]Factory{
			BackendGCS:        newGCS,
			BackendFilesystem: newFilesystem,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateClient builds the backend named by cfg and installs it,
// closing any previously installed backend.
func (c *Client) CreateClient(ctx context.Context, cfg *Config) error {
	factory, ok := c.factories[cfg.Backend]
	if !ok {
		return fault.S3(fmt.Errorf("unknown backend %q", cfg.Backend))
	}

	backend, err := factory(ctx, cfg, c.logger)
	if err != nil {
		c.logger.Error("object storage client creation failed", "backend", cfg.Backend, "error", err)
		return fault.S3(err)
	}

	c.mu.Lock()
	prev := c.current.Swap(&handle{backend: backend, timeout: cfg.TimeoutDuration()})
	c.mu.Unlock()

	if prev != nil {
		c.closeBackend(prev.backend)
	}

	c.logger.Info("object storage client created", "backend", cfg.Backend, "timeout", cfg.TimeoutDuration())
	return nil
}

// Available reports whether a backend is installed.
func (c *Client) Available() bool {
	return c.current.Load() != nil
}

// Put uploads req and returns the stored object's URL. Exactly one of
// the backend response, the timeout, or ctx cancellation decides the
// result.
func (c *Client) Put(ctx context.Context, req UploadRequest) (string, error) {
	h := c.current.Load()
	if h == nil {
		return "", fault.S3NotAvailable()
	}

	header := http.Header{}
	if req.ContentType != "" {
		header.Set("Content-Type", req.ContentType)
	}
	header.Set("Content-Length", strconv.FormatInt(req.ContentLength, 10))

	r := h.backend.Put(ctx, req.Key, header)

	done := make(chan outcome, 1)
	var once sync.Once
	settle := func(o outcome) bool {
		won := false
		once.Do(func() {
			done <- o
			won = true
		})
		return won
	}

	timer := c.clock.AfterFunc(h.timeout, func() {
		if settle(outcome{err: fault.S3RequestTimeout(h.timeout)}) {
			r.Abort()
		}
	})

	go func() {
		resp, err := r.End(req.Payload)

		var o outcome
		switch {
		case err != nil:
			o.err = fault.S3(err)
		case resp.StatusCode != http.StatusOK:
			o.err = fault.S3Write(resp.StatusCode, resp.Status)
		default:
			o.url = r.URL()
		}

		if settle(o) {
			timer.Stop()
		}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		if settle(outcome{err: fault.S3(ctx.Err())}) {
			timer.Stop()
			r.Abort()
		}
		o = <-done
	}

	if o.err != nil {
		c.logger.Error("upload failed", "key", req.Key, "kind", fault.KindOf(o.err), "error", o.err)
		return "", o.err
	}

	c.logger.Info("upload complete", "key", req.Key, "url", o.url, "size", len(req.Payload))
	return o.url, nil
}

// Get is not supported and always fails.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fault.S3(ErrGetUnsupported)
}

// Close uninstalls and closes the current backend.
func (c *Client) Close() error {
	c.mu.Lock()
	prev := c.current.Swap(nil)
	c.mu.Unlock()

	if prev == nil {
		return nil
	}
	return c.closeBackend(prev.backend)
}

func (c *Client) closeBackend(b Backend) error {
	if err := b.Close(); err != nil {
		c.logger.Warn("object storage backend close failed", "error", err)
		return err
	}
	return nil
}
