package objectstore_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/form-intake/internal/fault"
	"github.com/JaimeStill/form-intake/internal/objectstore"
)

func newFilesystemClient(t *testing.T, cfg *objectstore.Config) *objectstore.Client {
	t.Helper()

	cfg.Backend = objectstore.BackendFilesystem
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	client := objectstore.New(testLogger())
	if err := client.CreateClient(context.Background(), cfg); err != nil {
		t.Fatalf("CreateClient() failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFilesystem_Put(t *testing.T) {
	dir := t.TempDir()
	client := newFilesystemClient(t, &objectstore.Config{BasePath: dir})

	url, err := client.Put(context.Background(), objectstore.UploadRequest{
		Key:     "Joe-Smith-notes.txt",
		Payload: []byte("hello"),
	})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	path := filepath.Join(dir, "Joe-Smith-notes.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("stored = %q, want hello", data)
	}

	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "Joe-Smith-notes.txt") {
		t.Errorf("Put() = %q, want file url ending in key", url)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file left behind")
	}
}

func TestFilesystem_BaseURL(t *testing.T) {
	client := newFilesystemClient(t, &objectstore.Config{
		BasePath: t.TempDir(),
		BaseURL:  "https://files.example.com/forms/",
	})

	url, err := client.Put(context.Background(), objectstore.UploadRequest{
		Key:     "Joe-Smith-my cv.pdf",
		Payload: []byte("x"),
	})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	want := "https://files.example.com/forms/Joe-Smith-my%20cv.pdf"
	if url != want {
		t.Errorf("Put() = %q, want %q", url, want)
	}
}

func TestFilesystem_InvalidKeys(t *testing.T) {
	client := newFilesystemClient(t, &objectstore.Config{BasePath: t.TempDir()})

	for _, key := range []string{"", "../escape.txt", "/etc/passwd"} {
		t.Run(key, func(t *testing.T) {
			_, err := client.Put(context.Background(), objectstore.UploadRequest{Key: key, Payload: []byte("x")})

			var ferr *fault.Error
			if !errors.As(err, &ferr) || ferr.Kind != fault.KindS3WriteError {
				t.Fatalf("Put() error = %v, want S3WriteError", err)
			}
			if ferr.StatusCode != http.StatusBadRequest {
				t.Errorf("StatusCode = %d, want %d", ferr.StatusCode, http.StatusBadRequest)
			}
		})
	}
}
