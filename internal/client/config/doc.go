// Package config loads runtime configuration for the dropzone CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or the
//     DROPZONE_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Blank or zero values in the JSON file keep the built-in default, so a file
// only needs to name what it changes.
//
// Supported flags
//
//	-a string   base URL of the entity store
//	-g string   host:port of the store's gRPC health endpoint
//	-i int      online status check interval (seconds)
//	-e string   parent entity logical name
//	-p string   parent record id
//	-r string   relationship schema name
//	-u string   API client id
//	-l string   log level (debug, info, warn, error)
//	-x string   accepted extensions, comma separated (".pdf,.docx")
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "client_id": "dropzone-cli",
//	  "client_secret": "",
//	  "parent_entity": "project",
//	  "parent_id": "…",
//	  "relationship": "project_attachments",
//	  "file_column": "file",
//	  "name_field": "name",
//	  "size_field": "filesize",
//	  "max_file_size": 131072,
//	  "min_file_size": 0,
//	  "max_files": 0,
//	  "accept": [".pdf", ".docx"],
//	  "upload_failure_policy": "log",
//	  "online_check_interval": "3s",
//	  "request_timeout": "60s",
//	  "watch_debounce": "500ms",
//	  "metadata_cache_size": 64,
//	  "log_file": "dropzone.log",
//	  "log_level": "info"
//	}
package config
