package objectstore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/form-intake/internal/fault"
	"github.com/JaimeStill/form-intake/internal/objectstore"
	"github.com/jonboulle/clockwork"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRequest struct {
	respond chan objectstore.Response
	err     error
	aborted chan struct{}
	once    sync.Once
	aborts  atomic.Int32
}

func newFakeRequest() *fakeRequest {
	return &fakeRequest{
		respond: make(chan objectstore.Response, 1),
		aborted: make(chan struct{}),
	}
}

func (r *fakeRequest) End(payload []byte) (objectstore.Response, error) {
	if r.err != nil {
		return objectstore.Response{}, r.err
	}
	select {
	case resp := <-r.respond:
		return resp, nil
	case <-r.aborted:
		return objectstore.Response{}, context.Canceled
	}
}

func (r *fakeRequest) Abort() {
	r.aborts.Add(1)
	r.once.Do(func() { close(r.aborted) })
}

func (r *fakeRequest) URL() string {
	return "https://objects.test/forms/key"
}

type fakeBackend struct {
	req    *fakeRequest
	header http.Header
	closes int
}

func (b *fakeBackend) Put(ctx context.Context, key string, header http.Header) objectstore.Request {
	b.header = header
	return b.req
}

func (b *fakeBackend) Close() error {
	b.closes++
	return nil
}

func newClient(t *testing.T, c clockwork.Clock, backend *fakeBackend, timeout string) *objectstore.Client {
	t.Helper()

	client := objectstore.New(testLogger(),
		objectstore.WithClock(c),
		objectstore.WithBackend("fake", func(ctx context.Context, cfg *objectstore.Config, logger *slog.Logger) (objectstore.Backend, error) {
			return backend, nil
		}),
	)

	if err := client.CreateClient(context.Background(), &objectstore.Config{Backend: "fake", Timeout: timeout}); err != nil {
		t.Fatalf("CreateClient() failed: %v", err)
	}
	return client
}

func waitTimer(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("upload timer was not scheduled: %v", err)
	}
}

type putResult struct {
	url string
	err error
}

func startPut(ctx context.Context, c *objectstore.Client, req objectstore.UploadRequest) <-chan putResult {
	result := make(chan putResult, 1)
	go func() {
		url, err := c.Put(ctx, req)
		result <- putResult{url, err}
	}()
	return result
}

var upload = objectstore.UploadRequest{
	Key:           "Joe-Smith-resume.pdf",
	Payload:       []byte("%PDF-1.7"),
	ContentType:   "application/pdf",
	ContentLength: 8,
}

func TestPut_RespondsBeforeTimeout(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Unix(0, 0))
	backend := &fakeBackend{req: newFakeRequest()}
	client := newClient(t, fc, backend, "1000ms")

	result := startPut(context.Background(), client, upload)

	waitTimer(t, fc)
	fc.Advance(50 * time.Millisecond)
	backend.req.respond <- objectstore.Response{StatusCode: http.StatusOK, Status: "OK"}

	r := <-result
	if r.err != nil {
		t.Fatalf("Put() failed: %v", r.err)
	}
	if r.url != backend.req.URL() {
		t.Errorf("Put() = %q, want %q", r.url, backend.req.URL())
	}

	fc.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	if n := backend.req.aborts.Load(); n != 0 {
		t.Errorf("aborts = %d, want 0", n)
	}

	if got := backend.header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", got)
	}
	if got := backend.header.Get("Content-Length"); got != "8" {
		t.Errorf("Content-Length = %q, want 8", got)
	}
}

func TestPut_Timeout(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Unix(0, 0))
	backend := &fakeBackend{req: newFakeRequest()}
	client := newClient(t, fc, backend, "100ms")

	result := startPut(context.Background(), client, upload)

	waitTimer(t, fc)
	fc.Advance(100 * time.Millisecond)

	r := <-result
	if !fault.Is(r.err, fault.KindS3RequestTimeout) {
		t.Fatalf("Put() error = %v, want S3RequestTimeout", r.err)
	}
	if r.url != "" {
		t.Errorf("Put() = %q, want empty url", r.url)
	}

	select {
	case <-backend.req.aborted:
	case <-time.After(time.Second):
		t.Fatal("request was not aborted after timeout")
	}
	fc.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	if n := backend.req.aborts.Load(); n != 1 {
		t.Errorf("aborts = %d, want 1", n)
	}
}

func TestPut_Failures(t *testing.T) {
	tests := []struct {
		name   string
		resp   *objectstore.Response
		err    error
		kind   fault.Kind
		status int
	}{
		{
			name:   "non-200 status",
			resp:   &objectstore.Response{StatusCode: http.StatusForbidden, Status: "Forbidden"},
			kind:   fault.KindS3WriteError,
			status: http.StatusForbidden,
		},
		{
			name: "transport error",
			err:  errors.New("connection reset"),
			kind: fault.KindS3Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clockwork.NewFakeClockAt(time.Unix(0, 0))
			req := newFakeRequest()
			req.err = tt.err
			if tt.resp != nil {
				req.respond <- *tt.resp
			}
			client := newClient(t, fc, &fakeBackend{req: req}, "1s")

			_, err := client.Put(context.Background(), upload)
			if got := fault.KindOf(err); got != tt.kind {
				t.Fatalf("KindOf() = %s, want %s", got, tt.kind)
			}

			var ferr *fault.Error
			if !errors.As(err, &ferr) {
				t.Fatalf("Put() error %T is not *fault.Error", err)
			}
			if ferr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", ferr.StatusCode, tt.status)
			}
			if n := req.aborts.Load(); n != 0 {
				t.Errorf("aborts = %d, want 0", n)
			}
		})
	}
}

func TestPut_ContextCanceled(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Unix(0, 0))
	backend := &fakeBackend{req: newFakeRequest()}
	client := newClient(t, fc, backend, "1s")

	ctx, cancel := context.WithCancel(context.Background())
	result := startPut(ctx, client, upload)

	waitTimer(t, fc)
	cancel()

	r := <-result
	if !fault.Is(r.err, fault.KindS3Error) {
		t.Errorf("Put() error = %v, want S3Error", r.err)
	}
	if !errors.Is(r.err, context.Canceled) {
		t.Error("Put() error does not wrap context.Canceled")
	}
	if n := backend.req.aborts.Load(); n != 1 {
		t.Errorf("aborts = %d, want 1", n)
	}
}

func TestPut_NotAvailable(t *testing.T) {
	client := objectstore.New(testLogger())

	if client.Available() {
		t.Error("Available() = true before CreateClient")
	}

	_, err := client.Put(context.Background(), upload)
	if !fault.Is(err, fault.KindS3NotAvailable) {
		t.Errorf("Put() error = %v, want S3NotAvailable", err)
	}
}

func TestGet_Unsupported(t *testing.T) {
	client := newClient(t, clockwork.NewFakeClockAt(time.Unix(0, 0)), &fakeBackend{req: newFakeRequest()}, "1s")

	_, err := client.Get(context.Background(), "any")
	if !fault.Is(err, fault.KindS3Error) {
		t.Errorf("Get() error = %v, want S3Error", err)
	}
	if !errors.Is(err, objectstore.ErrGetUnsupported) {
		t.Error("Get() error does not wrap ErrGetUnsupported")
	}
}

func TestCreateClient(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		client := objectstore.New(testLogger())

		err := client.CreateClient(context.Background(), &objectstore.Config{Backend: "s3"})
		if !fault.Is(err, fault.KindS3Error) {
			t.Errorf("CreateClient() error = %v, want S3Error", err)
		}
		if client.Available() {
			t.Error("Available() = true after failed CreateClient")
		}
	})

	t.Run("factory failure", func(t *testing.T) {
		cause := errors.New("no credentials")
		client := objectstore.New(testLogger(),
			objectstore.WithBackend("broken", func(ctx context.Context, cfg *objectstore.Config, logger *slog.Logger) (objectstore.Backend, error) {
				return nil, cause
			}),
		)

		err := client.CreateClient(context.Background(), &objectstore.Config{Backend: "broken"})
		if !errors.Is(err, cause) {
			t.Errorf("CreateClient() error = %v, want wrapped cause", err)
		}
	})

	t.Run("replaces previous backend", func(t *testing.T) {
		first := &fakeBackend{req: newFakeRequest()}
		client := newClient(t, clockwork.NewFakeClockAt(time.Unix(0, 0)), first, "1s")

		if err := client.CreateClient(context.Background(), &objectstore.Config{Backend: "fake", Timeout: "1s"}); err != nil {
			t.Fatalf("CreateClient() failed: %v", err)
		}
		if first.closes != 1 {
			t.Errorf("closes = %d, want 1", first.closes)
		}
	})
}

func TestClose(t *testing.T) {
	backend := &fakeBackend{req: newFakeRequest()}
	client := newClient(t, clockwork.NewFakeClockAt(time.Unix(0, 0)), backend, "1s")

	if err := client.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if backend.closes != 1 {
		t.Errorf("closes = %d, want 1", backend.closes)
	}

	_, err := client.Put(context.Background(), upload)
	if !fault.Is(err, fault.KindS3NotAvailable) {
		t.Errorf("Put() after Close error = %v, want S3NotAvailable", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
