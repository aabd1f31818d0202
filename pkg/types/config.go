package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "word2md/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxBytes caps the size of a downloaded document. Zero means no limit.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`

	// MaxRetries enables retrying HTTP 429 responses with backoff.
	// Zero disables retries: the first failure is returned.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// RuntimeKind selects how the conversion engine is executed.
type RuntimeKind string

const (
	RuntimeAuto   RuntimeKind = "auto"
	RuntimeDocker RuntimeKind = "docker"
	RuntimePodman RuntimeKind = "podman"
	RuntimeLocal  RuntimeKind = "local"
)

// ImageExportMode is a docling picture export mode. ImageModeReferenced
// writes each picture to its own file and links it from the Markdown.
type ImageExportMode string

const ImageModeReferenced ImageExportMode = "referenced"

// EngineConfig holds settings for the conversion engine.
type EngineConfig struct {
	// Runtime selects docker, podman, local, or auto detection.
	Runtime RuntimeKind `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// Image is the container image providing the docling CLI.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Binary is the engine executable name, inside the image or on PATH.
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`
}

// StorageConfig holds the static object-storage settings.
type StorageConfig struct {
	// Endpoint is the host[:port] of the S3-compatible server.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" mapstructure:"secret_key"`

	// Bucket receives the relocated images.
	Bucket string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`

	// UseSSL selects https for both the client and generated URLs.
	UseSSL bool `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`

	Region string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`

	// PublicBaseURL overrides the scheme://endpoint prefix of returned URLs.
	PublicBaseURL string `json:"public_base_url,omitempty" yaml:"public_base_url,omitempty" mapstructure:"public_base_url"`

	// KeyPrefix is prepended to every generated object key.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty" mapstructure:"key_prefix"`

	// CreateBucket creates the bucket on startup when it does not exist.
	CreateBucket bool `json:"create_bucket" yaml:"create_bucket" mapstructure:"create_bucket"`
}

// PipelineOptions holds behaviour switches for a conversion run.
type PipelineOptions struct {
	// Strict fails the run on the first image upload error instead of
	// leaving that image's link unresolved.
	Strict bool `json:"strict" yaml:"strict" mapstructure:"strict"`

	// Frontmatter prepends a YAML header describing the run.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter" mapstructure:"frontmatter"`

	// WorkDir is the parent of per-run temporary workspaces
	// (default: the OS temp dir).
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir,omitempty" mapstructure:"work_dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// LedgerConfig holds settings for the run history database.
type LedgerConfig struct {
	// Path is the SQLite file. Empty disables the ledger.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// Config groups all settings for word2md.
type Config struct {
	Fetch    FetchConfig     `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Engine   EngineConfig    `json:"engine" yaml:"engine" mapstructure:"engine"`
	Storage  StorageConfig   `json:"storage" yaml:"storage" mapstructure:"storage"`
	Pipeline PipelineOptions `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Ledger   LedgerConfig    `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "word2md/0.1",
			},
			MaxBytes: 100 << 20,
		},
		Engine: EngineConfig{
			Runtime: RuntimeAuto,
			Image:   "docling:latest",
			Binary:  "docling",
		},
		Storage: StorageConfig{
			Bucket:       "md-images",
			CreateBucket: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
