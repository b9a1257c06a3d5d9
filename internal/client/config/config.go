package config

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/intake"
	"github.com/dmitrijs2005/dropzone/internal/client/models"
)

const (
	defaultFileColumn = "file"
	defaultNameField  = "name"
	defaultSizeField  = "filesize"
)

// Config holds runtime settings for the dropzone CLI.
type Config struct {
	ServerURL    string
	HealthAddr   string
	ClientID     string
	ClientSecret string

	ParentEntity string
	ParentID     string
	Relationship string

	FileColumn string
	NameField  string
	SizeField  string

	MaxFileSize int64
	MinFileSize int64
	MaxFiles    int
	// Accept restricts accepted extensions; empty means the built-in list.
	Accept []string

	UploadFailurePolicy string

	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	WatchDebounce       time.Duration
	MetadataCacheSize   int

	LogFile  string
	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.ClientID = "dropzone-cli"
	c.ParentEntity = "project"
	c.Relationship = "project_attachments"
	c.FileColumn = defaultFileColumn
	c.NameField = defaultNameField
	c.SizeField = defaultSizeField
	c.MaxFileSize = intake.DefaultMaxSize
	c.UploadFailurePolicy = "log"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 60 * time.Second
	c.WatchDebounce = 500 * time.Millisecond
	c.MetadataCacheSize = 64
	c.LogFile = "dropzone.log"
	c.LogLevel = "info"
}

// AttachmentOptions resolves the attribute names passed to the engine.
func (c *Config) AttachmentOptions() models.AttachmentOptions {
	return models.AttachmentOptions{
		FileColumn: orDefault(c.FileColumn, defaultFileColumn),
		NameField:  orDefault(c.NameField, defaultNameField),
		SizeField:  orDefault(c.SizeField, defaultSizeField),
	}
}

// IntakeRules builds the validation rules for dropped files.
func (c *Config) IntakeRules() intake.Rules {
	accept := intake.DefaultAccept()
	if len(c.Accept) > 0 {
		allowed := map[string]struct{}{}
		for _, e := range c.Accept {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" && !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			allowed[e] = struct{}{}
		}
		filtered := map[string][]string{}
		for mt, exts := range accept {
			for _, e := range exts {
				if _, ok := allowed[e]; ok {
					filtered[mt] = append(filtered[mt], e)
				}
			}
		}
		accept = filtered
	}

	return intake.Rules{
		Accept:   accept,
		MaxSize:  c.MaxFileSize,
		MinSize:  c.MinFileSize,
		MaxFiles: c.MaxFiles,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
