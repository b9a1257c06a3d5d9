package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var systemColumns = map[string]struct{}{
	ColumnID:         {},
	ColumnCreatedOn:  {},
	ColumnModifiedOn: {},
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	data := rec.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode record data: %w", err)
	}

	query := `INSERT INTO records (id, entity, data) VALUES ($1, $2, $3)
		RETURNING created_on, modified_on`

	err = r.db.QueryRowContext(ctx, query, rec.ID, rec.Entity, payload).Scan(&rec.CreatedOn, &rec.ModifiedOn)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	rec.Data = data
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, entity, id string) (*models.Record, error) {
	query := `SELECT id, entity, data, created_on, modified_on FROM records
		WHERE entity = $1 AND id = $2`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, entity, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return rec, nil
}

// buildList renders q into SQL. Data keys always travel as parameters;
// only whitelisted system column names are spliced into the text.
func buildList(q ListQuery) (string, []any, error) {
	var sb strings.Builder
	args := []any{q.Entity}

	sb.WriteString(`SELECT id, entity, data, created_on, modified_on FROM records WHERE entity = $1`)

	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		var lhs string
		switch {
		case f.Column != "":
			if _, ok := systemColumns[f.Column]; !ok {
				return "", nil, fmt.Errorf("%w: column %q", common.ErrInvalidQuery, f.Column)
			}
			lhs = f.Column + "::text"
		case f.Attribute != "":
			lhs = "data->>" + param(f.Attribute)
		default:
			return "", nil, fmt.Errorf("%w: empty filter", common.ErrInvalidQuery)
		}

		if f.Null {
			sb.WriteString(" AND " + lhs + " IS NULL")
		} else {
			sb.WriteString(" AND " + lhs + " = " + param(f.Value))
		}
	}

	order := q.Order
	if len(order) == 0 {
		order = []Order{{Column: ColumnCreatedOn, Desc: true}}
	}

	parts := make([]string, 0, len(order))
	for _, o := range order {
		var expr string
		switch {
		case o.Column != "":
			if _, ok := systemColumns[o.Column]; !ok {
				return "", nil, fmt.Errorf("%w: column %q", common.ErrInvalidQuery, o.Column)
			}
			expr = o.Column
		case o.Numeric:
			expr = "(data->>" + param(o.Attribute) + ")::numeric"
		default:
			expr = "data->>" + param(o.Attribute)
		}
		if o.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		parts = append(parts, expr)
	}
	sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + param(q.Limit))
	}

	return sb.String(), args, nil
}

func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]*models.Record, error) {
	query, args, err := buildList(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := []*models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SetField(ctx context.Context, entity, id, attribute string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	query := `UPDATE records SET data = jsonb_set(data, ARRAY[$3::text], $4::jsonb, true), modified_on = now()
		WHERE entity = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, entity, id, attribute, payload)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, entity, id string) error {
	query := `DELETE FROM records WHERE entity = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, entity, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	rec := &models.Record{}
	var raw []byte
	if err := s.Scan(&rec.ID, &rec.Entity, &raw, &rec.CreatedOn, &rec.ModifiedOn); err != nil {
		return nil, err
	}
	rec.Data = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to decode record data: %w", err)
		}
	}
	return rec, nil
}
