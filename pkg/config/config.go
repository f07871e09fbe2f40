// Package config loads the engine's configuration from file and
// environment. Every key can be set through the environment with the
// DRAFTFORGE_ prefix and dots replaced by underscores, e.g.
// DRAFTFORGE_CREDENTIAL_TOKEN.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/draftforge/draftforge/pkg/logging"
)

const (
	EnvPrefix      = "DRAFTFORGE"
	ConfigFileName = "draftforge"

	CredentialTokenKey = "credential.token"

	RepositoryOwnerKey = "repository.owner"
	RepositoryNameKey  = "repository.name"

	APIBaseURLKey = "api.base_url"
	APITimeoutKey = "api.timeout"

	DraftBranchKey         = "draft.branch"
	DraftExistenceTTLKey   = "draft.existence_ttl"
	DraftCommitAttemptsKey = "draft.commit_attempts"
	DraftRetryBaseDelayKey = "draft.retry_base_delay"

	LoggingFormatKey        = "logging.format"
	LoggingLevelKey         = "logging.level"
	LoggingOutputKey        = "logging.output"
	LoggingFileMaxSizeMBKey = "logging.file_max_size_mb"
	LoggingFilesKeepKey     = "logging.files_keep"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultAPITimeout = 30 * time.Second

	DefaultDraftBranch    = "cms-draft"
	DefaultExistenceTTL   = 30 * time.Second
	DefaultCommitAttempts = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond

	DefaultLoggingFormat        = "text"
	DefaultLoggingLevel         = "INFO"
	DefaultLoggingOutput        = "-"
	DefaultLoggingFileMaxSizeMB = 100
	DefaultLoggingFilesKeep     = 7
)

var (
	ErrBadConfiguration = errors.New("bad configuration")
	ErrMissingToken     = fmt.Errorf("%w: credential.token cannot be empty", ErrBadConfiguration)
	ErrMissingRepo      = fmt.Errorf("%w: repository.owner and repository.name are required", ErrBadConfiguration)
)

type Credential struct {
	Token string `mapstructure:"token"`
}

type Repository struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`
}

type API struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Draft struct {
	Branch         string        `mapstructure:"branch"`
	ExistenceTTL   time.Duration `mapstructure:"existence_ttl"`
	CommitAttempts int           `mapstructure:"commit_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

type Logging struct {
	Format        string   `mapstructure:"format"`
	Level         string   `mapstructure:"level"`
	Output        []string `mapstructure:"output"`
	FileMaxSizeMB int      `mapstructure:"file_max_size_mb"`
	FilesKeep     int      `mapstructure:"files_keep"`
}

type Config struct {
	Credential Credential `mapstructure:"credential"`
	Repository Repository `mapstructure:"repository"`
	API        API        `mapstructure:"api"`
	Draft      Draft      `mapstructure:"draft"`
	Logging    Logging    `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(CredentialTokenKey, "")
	v.SetDefault(RepositoryOwnerKey, "")
	v.SetDefault(RepositoryNameKey, "")

	v.SetDefault(APIBaseURLKey, DefaultAPIBaseURL)
	v.SetDefault(APITimeoutKey, DefaultAPITimeout)

	v.SetDefault(DraftBranchKey, DefaultDraftBranch)
	v.SetDefault(DraftExistenceTTLKey, DefaultExistenceTTL)
	v.SetDefault(DraftCommitAttemptsKey, DefaultCommitAttempts)
	v.SetDefault(DraftRetryBaseDelayKey, DefaultRetryBaseDelay)

	v.SetDefault(LoggingFormatKey, DefaultLoggingFormat)
	v.SetDefault(LoggingLevelKey, DefaultLoggingLevel)
	v.SetDefault(LoggingOutputKey, DefaultLoggingOutput)
	v.SetDefault(LoggingFileMaxSizeMBKey, DefaultLoggingFileMaxSizeMB)
	v.SetDefault(LoggingFilesKeepKey, DefaultLoggingFilesKeep)
}

// NewConfig reads configuration from an optional draftforge.yaml in the
// working directory and from the environment, validates it and applies the
// logging settings.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrBadConfiguration, err)
		}
	}

	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadConfiguration, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.setupLogger()
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Credential.Token == "" {
		return ErrMissingToken
	}
	if c.Repository.Owner == "" || c.Repository.Name == "" {
		return ErrMissingRepo
	}
	return nil
}

func (c *Config) setupLogger() {
	logging.SetOutputFormat(c.Logging.Format)
	logging.SetOutputs(c.Logging.Output, c.Logging.FileMaxSizeMB, c.Logging.FilesKeep)
	logging.SetLevel(c.Logging.Level)
}
