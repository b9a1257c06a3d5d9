package models

import "time"

// RecordState tags where a FileRecord is in its lifecycle.
type RecordState int

const (
	// StatePending: accepted locally, not yet confirmed by a refresh.
	StatePending RecordState = iota
	// StatePersisted: present in the remote store.
	StatePersisted
	// StateDeleting: a delete request is in flight.
	StateDeleting
)

func (s RecordState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePersisted:
		return "persisted"
	case StateDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// FileRecord is one attachment as seen by the client.
type FileRecord struct {
	DisplayName string
	SizeBytes   int64

	// RemoteID is empty until the record exists in the remote store.
	RemoteID string
	// CreatedAt is zero when unknown.
	CreatedAt time.Time

	// UploadKey correlates a pending record with its progress entry.
	UploadKey string
	// UploadProgressPercent is set only while an upload for UploadKey is tracked.
	UploadProgressPercent *int

	State RecordState
}

// IsPersisted reports whether the record has a remote identity.
func (f FileRecord) IsPersisted() bool {
	return f.RemoteID != ""
}

func (f FileRecord) IsDeleting() bool {
	return f.State == StateDeleting
}

// RawFile is a file handed over by a capture surface (picker, drop folder).
type RawFile struct {
	Name     string
	Size     int64
	Content  []byte
	MIMEType string
}

// AttachmentOptions carries the configured attribute names of the child
// record type. Blank values mean "not configured".
type AttachmentOptions struct {
	// FileColumn is the file-valued attribute receiving binary content.
	FileColumn string
	// NameField stores the display name.
	NameField string
	// SizeField stores the byte size.
	SizeField string
}
