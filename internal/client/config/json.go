package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/flagx"
	"github.com/dmitrijs2005/dropzone/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL    string `json:"server_url"`
	HealthAddr   string `json:"health_addr"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	ParentEntity string `json:"parent_entity"`
	ParentID     string `json:"parent_id"`
	Relationship string `json:"relationship"`

	FileColumn string `json:"file_column"`
	NameField  string `json:"name_field"`
	SizeField  string `json:"size_field"`

	MaxFileSize int64    `json:"max_file_size"`
	MinFileSize int64    `json:"min_file_size"`
	MaxFiles    int      `json:"max_files"`
	Accept      []string `json:"accept"`

	UploadFailurePolicy string `json:"upload_failure_policy"`

	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	WatchDebounce       timex.Duration `json:"watch_debounce"`
	MetadataCacheSize   int            `json:"metadata_cache_size"`

	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file. Blank and
// zero values are skipped so they keep the defaults. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.ClientID, jc.ClientID)
	setString(&cfg.ClientSecret, jc.ClientSecret)
	setString(&cfg.ParentEntity, jc.ParentEntity)
	setString(&cfg.ParentID, jc.ParentID)
	setString(&cfg.Relationship, jc.Relationship)
	setString(&cfg.FileColumn, jc.FileColumn)
	setString(&cfg.NameField, jc.NameField)
	setString(&cfg.SizeField, jc.SizeField)
	setString(&cfg.UploadFailurePolicy, jc.UploadFailurePolicy)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.MaxFileSize > 0 {
		cfg.MaxFileSize = jc.MaxFileSize
	}
	if jc.MinFileSize > 0 {
		cfg.MinFileSize = jc.MinFileSize
	}
	if jc.MaxFiles > 0 {
		cfg.MaxFiles = jc.MaxFiles
	}
	if len(jc.Accept) > 0 {
		cfg.Accept = jc.Accept
	}
	if jc.MetadataCacheSize > 0 {
		cfg.MetadataCacheSize = jc.MetadataCacheSize
	}

	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.WatchDebounce, jc.WatchDebounce)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
