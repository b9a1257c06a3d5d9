package models

import "time"

// FileContent describes a binary payload stored for a file attribute. The
// bytes themselves live in object storage under StorageKey.
type FileContent struct {
	RecordID    string
	Attribute   string
	FileName    string
	ContentType string
	Size        int64
	StorageKey  string
	UploadedAt  time.Time
}
