package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/server/config"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
	"github.com/dmitrijs2005/dropzone/internal/server/query"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/records"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dropzone/internal/server/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const modifiedOnAttribute = "modifiedon"

// DataService implements record CRUD and file attribute uploads for every
// entity known to the metadata tables.
type DataService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	blobs         storage.BlobStore
	maxUploadSize int64
	observer      Observer
	log           logging.Logger
}

func NewDataService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore, cfg *config.Config, observer Observer, log logging.Logger) *DataService {
	if observer == nil {
		observer = nopObserver{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &DataService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		maxUploadSize: cfg.MaxUploadSize,
		observer:      observer,
		log:           log.With("module", "data"),
	}
}

func (s *DataService) entity(ctx context.Context, set string) (*models.Entity, error) {
	return s.repomanager.Metadata(s.db).GetEntityBySet(ctx, set)
}

func validateID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: malformed id %q", common.ErrInvalidQuery, id)
	}
	return nil
}

// field maps an exposed property name to a records filter/order target.
type field struct {
	column    string
	attribute string
	numeric   bool
}

func resolveField(e *models.Entity, name string) (field, error) {
	switch {
	case strings.EqualFold(name, e.PrimaryIdAttribute):
		return field{column: records.ColumnID}, nil
	case strings.EqualFold(name, common.CreatedOnAttribute):
		return field{column: records.ColumnCreatedOn}, nil
	case strings.EqualFold(name, modifiedOnAttribute):
		return field{column: records.ColumnModifiedOn}, nil
	}

	if inner, ok := lookupValueName(name); ok {
		if a, found := e.Attribute(inner); found && a.Type == models.AttrLookup {
			return field{attribute: a.LogicalName}, nil
		}
	} else if a, found := e.Attribute(name); found && a.Type != models.AttrLookup {
		return field{attribute: a.LogicalName, numeric: a.Type == models.AttrInteger}, nil
	}

	return field{}, fmt.Errorf("%w: %s.%s", common.ErrUnknownAttribute, e.LogicalName, name)
}

// lookupValueName extracts "project" from "_project_value".
func lookupValueName(name string) (string, bool) {
	inner, ok := strings.CutPrefix(name, "_")
	if !ok {
		return "", false
	}
	inner, ok = strings.CutSuffix(inner, "_value")
	return inner, ok && inner != ""
}

// project renders rec the way it is exposed over the API. When sel is not
// empty only the selected properties are kept.
func project(e *models.Entity, rec *models.Record, sel []string) map[string]any {
	out := map[string]any{
		e.PrimaryIdAttribute:     rec.ID,
		common.CreatedOnAttribute: rec.CreatedOn.UTC().Format(time.RFC3339Nano),
		modifiedOnAttribute:      rec.ModifiedOn.UTC().Format(time.RFC3339Nano),
	}
	for _, a := range e.Attributes {
		v := rec.Data[a.LogicalName]
		if a.Type == models.AttrLookup {
			out[common.LookupValueAttribute(a.LogicalName)] = v
			continue
		}
		out[a.LogicalName] = v
	}

	if len(sel) == 0 {
		return out
	}

	picked := make(map[string]any, len(sel))
	for _, name := range sel {
		for k, v := range out {
			if strings.EqualFold(k, name) {
				picked[k] = v
			}
		}
	}
	return picked
}

// List returns the records of set matching opts.
func (s *DataService) List(ctx context.Context, set string, opts query.Options) (_ []map[string]any, err error) {
	start := time.Now()
	defer func() { s.observer.RecordOperation("list", time.Since(start), err) }()

	e, err := s.entity(ctx, set)
	if err != nil {
		return nil, err
	}

	for _, name := range opts.Select {
		if _, err := resolveField(e, name); err != nil {
			return nil, err
		}
	}

	q := records.ListQuery{Entity: e.LogicalName}
	for _, c := range opts.Filter {
		f, err := resolveField(e, c.Attribute)
		if err != nil {
			return nil, err
		}
		if f.column == records.ColumnID && !c.Null {
			if err := validateID(c.Value); err != nil {
				return nil, err
			}
		}
		q.Filters = append(q.Filters, records.Filter{Column: f.column, Attribute: f.attribute, Value: c.Value, Null: c.Null})
	}
	for _, o := range opts.OrderBy {
		f, err := resolveField(e, o.Attribute)
		if err != nil {
			return nil, err
		}
		q.Order = append(q.Order, records.Order{Column: f.column, Attribute: f.attribute, Desc: o.Desc, Numeric: f.numeric})
	}

	recs, err := s.repomanager.Records(s.db).List(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, project(e, rec, opts.Select))
	}
	return out, nil
}

// Get returns one record of set.
func (s *DataService) Get(ctx context.Context, set, id string, sel []string) (map[string]any, error) {
	e, err := s.entity(ctx, set)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	rec, err := s.repomanager.Records(s.db).Get(ctx, e.LogicalName, id)
	if err != nil {
		return nil, err
	}
	return project(e, rec, sel), nil
}

type bindRef struct {
	attribute string
	target    string
	id        string
}

// Create stores a new record of set built from body and returns its id.
// Lookups are given as "nav@odata.bind": "/parents(id)" and the referenced
// record must exist.
func (s *DataService) Create(ctx context.Context, set string, body map[string]any) (_ string, err error) {
	start := time.Now()
	defer func() { s.observer.RecordOperation("create", time.Since(start), err) }()

	e, err := s.entity(ctx, set)
	if err != nil {
		return "", err
	}

	data := make(map[string]any, len(body))
	var binds []bindRef

	for key, raw := range body {
		if nav, ok := strings.CutSuffix(key, common.BindSuffix); ok {
			ref, err := s.resolveBind(ctx, e, nav, raw)
			if err != nil {
				return "", err
			}
			binds = append(binds, ref)
			data[ref.attribute] = ref.id
			continue
		}

		a, found := e.Attribute(key)
		if !found {
			return "", fmt.Errorf("%w: %s.%s", common.ErrUnknownAttribute, e.LogicalName, key)
		}
		v, err := coerce(a, raw)
		if err != nil {
			return "", err
		}
		if a.Type == models.AttrLookup && v != nil {
			binds = append(binds, bindRef{attribute: a.LogicalName, target: a.Target, id: v.(string)})
		}
		data[a.LogicalName] = v
	}

	rec := &models.Record{ID: uuid.NewString(), Entity: e.LogicalName, Data: data}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		for _, b := range binds {
			if _, err := repo.Get(ctx, b.target, b.id); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return fmt.Errorf("%w: %s(%s) does not exist", common.ErrorValidation, b.target, b.id)
				}
				return err
			}
		}
		return repo.Create(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	s.log.Debug(ctx, "record created", "entity", e.LogicalName, "id", rec.ID)
	return rec.ID, nil
}

func (s *DataService) resolveBind(ctx context.Context, e *models.Entity, nav string, raw any) (bindRef, error) {
	a, found := e.Attribute(nav)
	if !found || a.Type != models.AttrLookup {
		return bindRef{}, fmt.Errorf("%w: %s has no navigation property %q", common.ErrUnknownAttribute, e.LogicalName, nav)
	}

	v, ok := raw.(string)
	if !ok {
		return bindRef{}, fmt.Errorf("%w: %s must be a string", common.ErrorValidation, nav+common.BindSuffix)
	}
	set, id, err := query.ParseBindTarget(v)
	if err != nil {
		return bindRef{}, err
	}
	if err := validateID(id); err != nil {
		return bindRef{}, err
	}

	target, err := s.entity(ctx, set)
	if err != nil {
		return bindRef{}, err
	}
	if target.LogicalName != a.Target {
		return bindRef{}, fmt.Errorf("%w: %s references %s, not %s", common.ErrorValidation, a.LogicalName, a.Target, target.LogicalName)
	}

	return bindRef{attribute: a.LogicalName, target: target.LogicalName, id: id}, nil
}

// coerce checks raw against the attribute type and normalizes it.
func coerce(a models.Attribute, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	bad := func() error {
		return fmt.Errorf("%w: %s expects %s, got %T", common.ErrorValidation, a.LogicalName, a.Type, raw)
	}

	switch a.Type {
	case models.AttrString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case models.AttrInteger:
		switch v := raw.(type) {
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		}
	case models.AttrDateTime:
		if v, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, bad()
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		}
	case models.AttrLookup:
		if v, ok := raw.(string); ok {
			if err := validateID(v); err != nil {
				return nil, err
			}
			return v, nil
		}
	case models.AttrFile:
		return nil, fmt.Errorf("%w: %s is set by uploading content", common.ErrorValidation, a.LogicalName)
	}
	return nil, bad()
}

// Upload describes binary content sent for a file attribute.
type Upload struct {
	FileName    string
	ContentType string
	Content     []byte
}

// UploadFile stores content for a file attribute of an existing record. A
// previous upload of the same attribute is replaced and its blob removed.
func (s *DataService) UploadFile(ctx context.Context, set, id, attribute string, up Upload) (err error) {
	start := time.Now()
	defer func() { s.observer.RecordUpload(time.Since(start), int64(len(up.Content)), err) }()

	e, err := s.entity(ctx, set)
	if err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	a, found := e.Attribute(attribute)
	if !found || a.Type != models.AttrFile {
		return fmt.Errorf("%w: %s.%s is not a file attribute", common.ErrUnknownAttribute, e.LogicalName, attribute)
	}
	if s.maxUploadSize > 0 && int64(len(up.Content)) > s.maxUploadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", common.ErrorTooLarge, len(up.Content), s.maxUploadSize)
	}
	if strings.TrimSpace(up.FileName) == "" {
		return fmt.Errorf("%w: missing %s header", common.ErrorValidation, common.FileNameHeaderName)
	}

	if _, err := s.repomanager.Records(s.db).Get(ctx, e.LogicalName, id); err != nil {
		return err
	}

	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(up.Content).String()
	}

	key := storage.NewStorageKey(e.LogicalName)
	if err := s.blobs.Put(ctx, key, contentType, up.Content); err != nil {
		return fmt.Errorf("store content: %w", err)
	}

	var previous string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesRepo := s.repomanager.Files(tx)

		old, err := filesRepo.Get(ctx, id, a.LogicalName)
		switch {
		case err == nil:
			previous = old.StorageKey
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		if err := filesRepo.Upsert(ctx, &models.FileContent{
			RecordID:    id,
			Attribute:   a.LogicalName,
			FileName:    up.FileName,
			ContentType: contentType,
			Size:        int64(len(up.Content)),
			StorageKey:  key,
		}); err != nil {
			return err
		}
		return s.repomanager.Records(tx).SetField(ctx, e.LogicalName, id, a.LogicalName, up.FileName)
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn(ctx, "orphaned blob", "key", key, "error", derr)
		}
		return err
	}

	if previous != "" && previous != key {
		if derr := s.blobs.Delete(ctx, previous); derr != nil {
			s.log.Warn(ctx, "failed to remove replaced blob", "key", previous, "error", derr)
		}
	}

	s.log.Info(ctx, "file stored", "entity", e.LogicalName, "id", id, "attribute", a.LogicalName,
		"file", up.FileName, "size", len(up.Content))
	return nil
}

// Download returns the metadata and content of a file attribute.
func (s *DataService) Download(ctx context.Context, set, id, attribute string) (*models.FileContent, []byte, error) {
	e, err := s.entity(ctx, set)
	if err != nil {
		return nil, nil, err
	}
	if err := validateID(id); err != nil {
		return nil, nil, err
	}
	a, found := e.Attribute(attribute)
	if !found || a.Type != models.AttrFile {
		return nil, nil, fmt.Errorf("%w: %s.%s is not a file attribute", common.ErrUnknownAttribute, e.LogicalName, attribute)
	}

	f, err := s.repomanager.Files(s.db).Get(ctx, id, a.LogicalName)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return f, content, nil
}

// Delete removes a record, its file rows and then their blobs. Blob removal
// failures are logged only; the record is already gone.
func (s *DataService) Delete(ctx context.Context, set, id string) (err error) {
	start := time.Now()
	defer func() { s.observer.RecordOperation("delete", time.Since(start), err) }()

	e, err := s.entity(ctx, set)
	if err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	var blobs []*models.FileContent
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		blobs, err = s.repomanager.Files(tx).ListByRecord(ctx, id)
		if err != nil {
			return err
		}
		return s.repomanager.Records(tx).Delete(ctx, e.LogicalName, id)
	})
	if err != nil {
		return err
	}

	for _, f := range blobs {
		if derr := s.blobs.Delete(ctx, f.StorageKey); derr != nil {
			s.log.Warn(ctx, "failed to remove blob", "key", f.StorageKey, "error", derr)
		}
	}

	s.log.Info(ctx, "record deleted", "entity", e.LogicalName, "id", id)
	return nil
}
