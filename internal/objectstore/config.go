package objectstore

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
)

// Backend names understood by Client.
const (
	BackendGCS        = "gcs"
	BackendFilesystem = "filesystem"
)

// Config contains object storage configuration.
type Config struct {
	// Backend selects the storage implementation. Default: "filesystem"
	Backend string `toml:"backend"`

	// Bucket is the target bucket for the gcs backend.
	Bucket string `toml:"bucket"`

	// BasePath is the root directory for the filesystem backend.
	// Default: ".data/blobs"
	BasePath string `toml:"base_path"`

	// BaseURL, when set, prefixes object keys to form the returned URL.
	BaseURL string `toml:"base_url"`

	Endpoint        string `toml:"endpoint"`
	CredentialsFile string `toml:"credentials_file"`

	// Timeout bounds a single upload. Default: "1s"
	Timeout string `toml:"timeout"`

	MaxUploadSize    string `toml:"max_upload_size"`
	maxUploadSizeVal int64
}

// Env holds the environment variable names that override Config fields.
type Env struct {
	Backend         string
	Bucket          string
	BasePath        string
	BaseURL         string
	Endpoint        string
	CredentialsFile string
	Timeout         string
	MaxUploadSize   string
}

// TimeoutDuration parses Timeout. Call after Finalize.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *Config) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// Finalize applies defaults, loads environment overrides, and validates the storage configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Bucket != "" {
		c.Bucket = overlay.Bucket
	}
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.CredentialsFile != "" {
		c.CredentialsFile = overlay.CredentialsFile
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if size, err := units.FromHumanSize(overlay.MaxUploadSize); err == nil {
		c.MaxUploadSize = overlay.MaxUploadSize
		c.maxUploadSizeVal = size
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFilesystem
	}
	if c.BasePath == "" {
		c.BasePath = ".data/blobs"
	}
	if c.Timeout == "" {
		c.Timeout = "1s"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	overrides := []struct {
		name   string
		target *string
	}{
		{env.Backend, &c.Backend},
		{env.Bucket, &c.Bucket},
		{env.BasePath, &c.BasePath},
		{env.BaseURL, &c.BaseURL},
		{env.Endpoint, &c.Endpoint},
		{env.CredentialsFile, &c.CredentialsFile},
		{env.Timeout, &c.Timeout},
		{env.MaxUploadSize, &c.MaxUploadSize},
	}

	for _, o := range overrides {
		if o.name == "" {
			continue
		}
		if v := os.Getenv(o.name); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket required for gcs backend")
		}
	case BackendFilesystem:
		if c.BasePath == "" {
			return fmt.Errorf("base_path required")
		}
	case "":
		return fmt.Errorf("backend required")
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadSizeVal = size

	return nil
}
