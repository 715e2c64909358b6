package config

import (
	"fmt"
	"strings"
)

// Reader backend types.
const (
	ReaderTypeLocal  = "local"
	ReaderTypeS3     = "s3"
	ReaderTypeGCS    = "gcs"
	ReaderTypeGitHub = "github"
)

// DefaultGitHubBaseURL is the public GitHub REST API endpoint.
const DefaultGitHubBaseURL = "https://api.github.com"

// ReaderConfig configures one named reader. Exactly one backend section
// matching Type must be set.
type ReaderConfig struct {
	Type string `yaml:"type" mapstructure:"type"`
	// Verbose controls whether read failures are logged with full
	// diagnostic detail. Defaults to true.
	Verbose *bool `yaml:"verbose,omitempty" mapstructure:"verbose"`

	Local  *LocalReaderConfig  `yaml:"local,omitempty" mapstructure:"local"`
	S3     *S3ReaderConfig     `yaml:"s3,omitempty" mapstructure:"s3"`
	GCS    *GCSReaderConfig    `yaml:"gcs,omitempty" mapstructure:"gcs"`
	GitHub *GitHubReaderConfig `yaml:"github,omitempty" mapstructure:"github"`
}

// LocalReaderConfig reads files below a root directory.
type LocalReaderConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// S3ReaderConfig contains S3-compatible storage settings.
type S3ReaderConfig struct {
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// GCSReaderConfig contains Google Cloud Storage settings. With no
// credentials file the client uses application default credentials.
type GCSReaderConfig struct {
	Bucket                string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	CredentialsFile       string `yaml:"credentials_file,omitempty" mapstructure:"credentials_file"`
	EndpointURL           string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	WithoutAuthentication bool   `yaml:"without_authentication" mapstructure:"without_authentication"`
}

// GitHubReaderConfig reads files from a GitHub repository.
type GitHubReaderConfig struct {
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	// Repository is the default "owner/repo".
	Repository string `yaml:"repository,omitempty" mapstructure:"repository"`
	Ref        string `yaml:"ref,omitempty" mapstructure:"ref"`
	Token      string `yaml:"token,omitempty" mapstructure:"token"`
	Timeout    string `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// IsVerbose reports the configured verbosity, defaulting to true.
func (r *ReaderConfig) IsVerbose() bool {
	if r.Verbose == nil {
		return true
	}

	return *r.Verbose
}

func (r *ReaderConfig) applyDefaults() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))

	if r.GitHub != nil && r.GitHub.BaseURL == "" {
		r.GitHub.BaseURL = DefaultGitHubBaseURL
	}
}

// Validate checks that the backend section matches the declared type.
func (r *ReaderConfig) Validate() error {
	switch r.Type {
	case ReaderTypeLocal:
		if r.Local == nil || r.Local.Root == "" {
			return fmt.Errorf("local.root is required")
		}
	case ReaderTypeS3:
		if r.S3 == nil {
			return fmt.Errorf("s3 section is required")
		}

		if (r.S3.AccessKeyID == "") != (r.S3.SecretAccessKey == "") {
			return fmt.Errorf(
				"s3.access_key_id and s3.secret_access_key must be set together",
			)
		}
	case ReaderTypeGCS:
		if r.GCS == nil {
			return fmt.Errorf("gcs section is required")
		}

		if r.GCS.CredentialsFile != "" && r.GCS.WithoutAuthentication {
			return fmt.Errorf(
				"gcs.credentials_file and gcs.without_authentication are exclusive",
			)
		}
	case ReaderTypeGitHub:
		if r.GitHub == nil {
			return fmt.Errorf("github section is required")
		}

		if r.GitHub.Repository != "" && strings.Count(r.GitHub.Repository, "/") != 1 {
			return fmt.Errorf(
				"github.repository must be in owner/repo form, got %q",
				r.GitHub.Repository,
			)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown reader type %q", r.Type)
	}

	return nil
}

func (r *ReaderConfig) redacted() *ReaderConfig {
	out := *r

	if r.S3 != nil {
		s3 := *r.S3
		s3.SecretAccessKey = redact(s3.SecretAccessKey)
		out.S3 = &s3
	}

	if r.GitHub != nil {
		gh := *r.GitHub
		gh.Token = redact(gh.Token)
		out.GitHub = &gh
	}

	return &out
}
