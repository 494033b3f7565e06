package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-yaml"

	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/storage"
)

// Config is the server configuration file.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// DataDir holds the BadgerDB files.
	DataDir string `yaml:"data_dir"`

	// Language hint and organization vocabulary for transcription.
	Language   string   `yaml:"language"`
	Vocabulary []string `yaml:"vocabulary"`

	// GraceSeconds overrides the disconnect grace window.
	GraceSeconds int `yaml:"grace_seconds"`

	Transcriber TranscriberConfig `yaml:"transcriber"`
	OpenAI      OpenAIConfig      `yaml:"openai"`

	// AlertWebhook receives high and critical alerts as JSON POSTs.
	AlertWebhook string `yaml:"alert_webhook"`

	// Rules are organization alert rules loaded at startup.
	Rules []RuleConfig `yaml:"rules"`

	Export ExportConfig `yaml:"export"`
}

// TranscriberConfig points at the websocket transcription service.
type TranscriberConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// OpenAIConfig enables end-of-meeting summaries when APIKey is set.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RuleConfig is one alert rule in the config file.
type RuleConfig struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"` // keyword, pattern, sentiment-threshold, engagement-threshold
	Priority  string   `yaml:"priority"`
	Keywords  []string `yaml:"keywords"`
	Pattern   string   `yaml:"pattern"`
	Threshold float64  `yaml:"threshold"`
	Message   string   `yaml:"message"`
}

// ExportConfig selects where `confab export` writes artifacts.
type ExportConfig struct {
	// Backend is "local" (default) or "s3".
	Backend string `yaml:"backend"`

	// Dir is the local output directory.
	Dir string `yaml:"dir"`

	// S3 settings.
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// loadConfig reads and validates the YAML config file. $VAR and ${VAR}
// references are expanded from the environment before parsing, so
// secrets like API keys can stay out of the file.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{
		Listen: ":8080",
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// orgRules converts configured rules to engine rules. Rules without an
// explicit priority default to medium.
func (c *Config) orgRules() []*meeting.Rule {
	var out []*meeting.Rule
	for i, rc := range c.Rules {
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("org-rule-%d", i+1)
		}
		prio := meeting.PriorityMedium
		if rc.Priority != "" {
			prio = meeting.ParsePriority(rc.Priority)
		}
		out = append(out, &meeting.Rule{
			ID:        id,
			Kind:      meeting.RuleKind(rc.Kind),
			Priority:  prio,
			IsActive:  true,
			Keywords:  rc.Keywords,
			Pattern:   rc.Pattern,
			Threshold: rc.Threshold,
			Message:   rc.Message,
		})
	}
	return out
}

// fileStore builds the artifact store for exports.
func (c *ExportConfig) fileStore() (storage.FileStore, error) {
	switch c.Backend {
	case "", "local":
		dir := c.Dir
		if dir == "" {
			dir = "exports"
		}
		return storage.NewLocal(dir)
	case "s3":
		if c.Bucket == "" {
			return nil, fmt.Errorf("export.bucket is required for the s3 backend")
		}
		opts := s3.Options{Region: c.Region}
		if c.Endpoint != "" {
			opts.BaseEndpoint = aws.String(c.Endpoint)
			opts.UsePathStyle = true
		}
		if c.AccessKey != "" {
			ak, sk := c.AccessKey, c.SecretKey
			opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: ak, SecretAccessKey: sk}, nil
			})
		}
		return storage.NewS3(s3.New(opts), c.Bucket, c.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", c.Backend)
	}
}
