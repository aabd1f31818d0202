// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the word2md CLI. It converts Word
// documents to Markdown and relocates their images to object storage.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/word2md/internal/logging"
	"github.com/pdiddy/word2md/internal/secrets"
	"github.com/pdiddy/word2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds credential files read at startup.
const secretsDir = ".secrets/"

// Exit codes reported for each failing stage.
const (
	exitGeneric    = 1
	exitFetch      = 2
	exitConversion = 3
	exitUpload     = 4
	exitRewrite    = 5
)

var (
	// appConfig is loaded from defaults, the config file, WORD2MD_*
	// environment variables and flags before any subcommand runs.
	appConfig types.Config
	logger    = zerolog.Nop()
)

// rootCmd is the base command for the word2md CLI.
var rootCmd = &cobra.Command{
	Use:   "word2md",
	Short: "Convert Word documents to Markdown with images in object storage",
	Long: `word2md fetches a Word (.docx) document from a URL or a local path, converts
it to Markdown with docling, uploads every extracted picture to an
S3-compatible bucket (MinIO) and rewrites the image links to point at the
uploaded objects.

Credentials may be supplied through the config file, WORD2MD_STORAGE_*
environment variables, or the files minio-access-key and minio-secret-key
in .secrets/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logger = logging.New(cfg.Log, cmd.ErrOrStderr())

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		secrets.ApplyStorage(&cfg.Storage, s)

		appConfig = cfg
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./word2md.yaml or ~/.config/word2md/word2md.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("word2md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "word2md"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configureViper registers defaults and environment lookup on v so that
// every key can be set from WORD2MD_<SECTION>_<KEY>.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix("WORD2MD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := types.DefaultConfig()
	defaults := map[string]any{
		"fetch.timeout":           d.Fetch.Timeout,
		"fetch.user_agent":        d.Fetch.UserAgent,
		"fetch.max_bytes":         d.Fetch.MaxBytes,
		"fetch.max_retries":       d.Fetch.MaxRetries,
		"engine.runtime":          string(d.Engine.Runtime),
		"engine.image":            d.Engine.Image,
		"engine.binary":           d.Engine.Binary,
		"storage.endpoint":        d.Storage.Endpoint,
		"storage.access_key":      d.Storage.AccessKey,
		"storage.secret_key":      d.Storage.SecretKey,
		"storage.bucket":          d.Storage.Bucket,
		"storage.use_ssl":         d.Storage.UseSSL,
		"storage.region":          d.Storage.Region,
		"storage.public_base_url": d.Storage.PublicBaseURL,
		"storage.key_prefix":      d.Storage.KeyPrefix,
		"storage.create_bucket":   d.Storage.CreateBucket,
		"pipeline.strict":         d.Pipeline.Strict,
		"pipeline.frontmatter":    d.Pipeline.Frontmatter,
		"pipeline.work_dir":       d.Pipeline.WorkDir,
		"log.level":               d.Log.Level,
		"log.format":              d.Log.Format,
		"ledger.path":             d.Ledger.Path,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// loadConfig decodes v into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, types.ErrFetch):
		return exitFetch
	case errors.Is(err, types.ErrConversion):
		return exitConversion
	case errors.Is(err, types.ErrUpload):
		return exitUpload
	case errors.Is(err, types.ErrRewrite):
		return exitRewrite
	default:
		return exitGeneric
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
