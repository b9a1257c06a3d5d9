// Package remotestore adapts the entity store API to the four attachment
// operations: list, create, upload and delete of child records.
//
// No method panics or returns a bare transport error: every failure is a
// *Failure tagged with its Kind.
package remotestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/client/webapi"
	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/netx"
)

const (
	MsgBindingMissing = "Relationship metadata not found. Double check configuration."
	MsgFileIDRequired = "File id is required."
)

// Records is the subset of webapi.API the store needs.
type Records interface {
	ListRecords(ctx context.Context, entitySet string, q webapi.Query) ([]webapi.Record, error)
	CreateRecord(ctx context.Context, entitySet string, fields webapi.Record) (string, error)
	PatchBinaryAttribute(ctx context.Context, entitySet, id, attribute string, content []byte, fileName string, onProgress netx.ProgressFunc) error
	DeleteRecord(ctx context.Context, entitySet, id string) error
}

type Store struct {
	api Records
	log logging.Logger
}

func New(api Records, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{api: api, log: log.With("module", "remotestore")}
}

func bindingMissing() error {
	return &Failure{Kind: KindMetadataResolution, Message: MsgBindingMissing}
}

func statusOf(err error) int {
	var he *webapi.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// List returns the children of parentID, newest first. Only configured
// fields are requested, plus the child id and creation timestamp.
func (s *Store) List(ctx context.Context, b *models.RelationshipBinding, parentID string, opts models.AttachmentOptions) ([]models.FileRecord, error) {
	if !b.Valid() {
		return nil, bindingMissing()
	}

	sel := make([]string, 0, 4)
	if opts.NameField != "" {
		sel = append(sel, opts.NameField)
	}
	if opts.SizeField != "" {
		sel = append(sel, opts.SizeField)
	}
	sel = append(sel, b.IDAttribute(), common.CreatedOnAttribute)

	q := webapi.Query{
		Select:  sel,
		Filter:  fmt.Sprintf("%s eq %s", common.LookupValueAttribute(b.ParentLookupAttribute), webapi.QuoteLiteral(parentID)),
		OrderBy: common.CreatedOnAttribute + " desc",
	}

	rows, err := s.api.ListRecords(ctx, b.ChildEntityCollectionName, q)
	if err != nil {
		s.log.Error(ctx, "error fetching related files", "parent_id", parentID, "error", err)
		return nil, &Failure{
			Kind:       KindRecordList,
			Message:    fmt.Sprintf("Failed to retrieve files: %v", err),
			StatusCode: statusOf(err),
			Err:        err,
		}
	}

	out := make([]models.FileRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.FileRecord{
			DisplayName: stringField(row, opts.NameField),
			SizeBytes:   intField(row, opts.SizeField),
			RemoteID:    stringField(row, b.IDAttribute()),
			CreatedAt:   timeField(row, common.CreatedOnAttribute),
			State:       models.StatePersisted,
		})
	}

	// The store orders already; keep the contract even if it does not.
	slices.SortStableFunc(out, func(x, y models.FileRecord) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})
	return out, nil
}

// CreateChild creates one child record bound to parentID and returns its id.
func (s *Store) CreateChild(ctx context.Context, b *models.RelationshipBinding, parentID, fileName string, size int64, opts models.AttachmentOptions) (string, error) {
	if !b.Valid() {
		return "", bindingMissing()
	}

	fields := webapi.Record{}
	if opts.NameField != "" {
		fields[opts.NameField] = fileName
	}
	if opts.SizeField != "" {
		fields[opts.SizeField] = size
	}
	k, v := b.BindExpression(parentID)
	fields[k] = v

	id, err := s.api.CreateRecord(ctx, b.ChildEntityCollectionName, fields)
	if err != nil {
		s.log.Error(ctx, "error creating record", "file", fileName, "error", err)
		return "", &Failure{
			Kind:       KindRecordCreate,
			Message:    fmt.Sprintf("Error creating record: %v", err),
			StatusCode: statusOf(err),
			Err:        err,
		}
	}
	return id, nil
}

// UploadBinary streams content into fileColumn of the child record.
// onProgress observes 0 before any byte moves, non-decreasing values while
// uploading and exactly one 100 on success.
func (s *Store) UploadBinary(ctx context.Context, b *models.RelationshipBinding, childID, fileColumn string, content []byte, fileName string, onProgress netx.ProgressFunc) error {
	if !b.Valid() {
		return bindingMissing()
	}

	progress := netx.Monotonic(onProgress)
	progress(0)

	err := s.api.PatchBinaryAttribute(ctx, b.ChildEntityCollectionName, childID, fileColumn, content, fileName, progress)
	if err != nil {
		s.log.Error(ctx, "error uploading file", "file", fileName, "record_id", childID, "error", err)
		return &Failure{
			Kind:       KindUploadTransport,
			Message:    fmt.Sprintf("Upload failed: %v", err),
			StatusCode: statusOf(err),
			Err:        err,
		}
	}

	progress(100)
	return nil
}

// DeleteChild removes the child record. The failure message carries the
// server's explanation when the response body has one.
func (s *Store) DeleteChild(ctx context.Context, b *models.RelationshipBinding, childID string) error {
	if !b.Valid() {
		return bindingMissing()
	}
	if childID == "" {
		return &Failure{Kind: KindRecordDelete, Message: MsgFileIDRequired}
	}

	err := s.api.DeleteRecord(ctx, b.ChildEntityCollectionName, childID)
	if err == nil {
		return nil
	}

	detail := err.Error()
	var he *webapi.HTTPError
	if errors.As(err, &he) {
		if msg := he.ServerMessage(); msg != "" {
			detail = msg
		}
	}

	s.log.Error(ctx, "deleteFile failed", "record_id", childID, "error", err)

	msg := "Failed to delete file"
	if detail != "" {
		msg += ": " + detail
	}
	return &Failure{Kind: KindRecordDelete, Message: msg, StatusCode: statusOf(err), Err: err}
}

// CreateRelatedFile creates the child record for f and uploads its content.
// The returned id is set when the record was created, even if the upload
// then failed.
func (s *Store) CreateRelatedFile(ctx context.Context, b *models.RelationshipBinding, parentID string, f models.RawFile, opts models.AttachmentOptions, onProgress netx.ProgressFunc) (string, error) {
	id, err := s.CreateChild(ctx, b, parentID, f.Name, f.Size, opts)
	if err != nil {
		return "", err
	}
	if err := s.UploadBinary(ctx, b, id, opts.FileColumn, f.Content, f.Name, onProgress); err != nil {
		return id, err
	}
	return id, nil
}

func stringField(r webapi.Record, name string) string {
	if name == "" {
		return ""
	}
	switch v := r[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intField(r webapi.Record, name string) int64 {
	if name == "" {
		return 0
	}
	switch v := r[name].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func timeField(r webapi.Record, name string) time.Time {
	s, ok := r[name].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
