// adapter.go
//
// Data access and schema compatibility layer for the wellness check-in service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of wellnessdb.
// wellnessdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// wellnessdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with wellnessdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package relational implements the adapter contract over gorm, for whichever SQL
// dialect DB_TYPE selects.
package relational

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/database"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

const backend = mapping.Relational

// Adapter stores entities in SQL tables through column maps.
type Adapter struct {
	db     *gorm.DB
	table  *mapping.Table
	policy adapter.RetryPolicy
	now    func() time.Time
}

var _ adapter.Adapter = (*Adapter)(nil)

// New returns an adapter over db. The schema must already exist (database.AutoMigrate).
func New(db *gorm.DB, table *mapping.Table, policy adapter.RetryPolicy) *Adapter {
	return &Adapter{
		db:     db,
		table:  table,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Backend implements adapter.Adapter.
func (a *Adapter) Backend() mapping.Backend { return backend }

// DB exposes the underlying pool.
func (a *Adapter) DB() *gorm.DB { return a.db }

func (a *Adapter) session(ctx context.Context, e mapping.Entity, stmt, op string) *gorm.DB {
	return a.db.WithContext(ctx).
		Table(a.table.TableName(e, backend)).
		Clauses(hints.CommentBefore(stmt, "wellnessdb:"+string(e)+"."+op))
}

// Create implements adapter.Adapter.
func (a *Adapter) Create(ctx context.Context, e mapping.Entity, fields mapping.Fields) (adapter.Record, error) {
	prepared, err := adapter.PrepareCreate(a.table, e, fields)
	if err != nil {
		return adapter.Record{}, err
	}
	adapter.StampTimes(a.table, e, prepared, a.now(), true)

	native, err := a.table.EncodeFields(e, backend, prepared)
	if err != nil {
		return adapter.Record{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return adapter.Record{}, fmt.Errorf("generate id: %w", err)
	}
	native["id"] = id.String()

	err = adapter.Call(ctx, a.policy, backend, e, "create", func(ctx context.Context) error {
		return a.translate(e, "create", a.session(ctx, e, "insert", "create").Create(native).Error)
	})
	if err != nil {
		return adapter.Record{}, err
	}

	decoded, err := a.table.DecodeFields(e, backend, native)
	if err != nil {
		return adapter.Record{}, err
	}
	return adapter.Record{ID: id.String(), Fields: decoded}, nil
}

// FindByID implements adapter.Adapter.
func (a *Adapter) FindByID(ctx context.Context, e mapping.Entity, id string) (adapter.Record, error) {
	if id == "" {
		return adapter.Record{}, types.NewValidationError("id", "id is required")
	}
	return a.FindOne(ctx, e, adapter.Eq{Field: "id", Value: id})
}

// FindOne implements adapter.Adapter.
func (a *Adapter) FindOne(ctx context.Context, e mapping.Entity, p adapter.Predicate) (adapter.Record, error) {
	records, err := a.FindMany(ctx, e, p, nil, 1)
	if err != nil {
		return adapter.Record{}, err
	}
	if len(records) == 0 {
		return adapter.Record{}, fmt.Errorf("%s where %s: %w", e, describe(p), types.ErrNotFound)
	}
	return records[0], nil
}

// FindMany implements adapter.Adapter.
func (a *Adapter) FindMany(ctx context.Context, e mapping.Entity, p adapter.Predicate, order []adapter.Order, limit int) ([]adapter.Record, error) {
	where, err := a.compile(e, p)
	if err != nil {
		return nil, err
	}
	orderBy, err := a.orderBy(e, order)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	err = adapter.Call(ctx, a.policy, backend, e, "find", func(ctx context.Context) error {
		rows = nil
		q := a.session(ctx, e, "select", "find")
		if where != nil {
			q = q.Where(where)
		}
		q = q.Order(orderBy)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return a.translate(e, "find", q.Find(&rows).Error)
	})
	if err != nil {
		return nil, err
	}

	records := make([]adapter.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := a.decode(e, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Update implements adapter.Adapter. Only the given columns are written, in a single
// UPDATE statement.
func (a *Adapter) Update(ctx context.Context, e mapping.Entity, id string, partial mapping.Fields) (adapter.Record, error) {
	normalized, cleared, err := adapter.PrepareUpdate(a.table, e, partial)
	if err != nil {
		return adapter.Record{}, err
	}
	adapter.StampTimes(a.table, e, normalized, a.now(), false)

	native, err := a.table.EncodeFields(e, backend, normalized)
	if err != nil {
		return adapter.Record{}, err
	}
	for _, name := range cleared {
		col := a.table.Column(e, backend, name)
		if col == "" {
			return adapter.Record{}, types.NewValidationError(name, "no mapping on the %s backend", backend)
		}
		native[col] = nil
	}

	if len(native) > 0 {
		err = adapter.Call(ctx, a.policy, backend, e, "update", func(ctx context.Context) error {
			return a.translate(e, "update", a.session(ctx, e, "update", "update").Where("id = ?", id).Updates(native).Error)
		})
		if err != nil {
			return adapter.Record{}, err
		}
	}

	// RowsAffected is 0 on MySQL when nothing changed, so existence is checked by reading back.
	return a.FindByID(ctx, e, id)
}

// Delete implements adapter.Adapter. Deleting a missing row succeeds.
func (a *Adapter) Delete(ctx context.Context, e mapping.Entity, id string) error {
	if id == "" {
		return types.NewValidationError("id", "id is required")
	}
	return adapter.Call(ctx, a.policy, backend, e, "delete", func(ctx context.Context) error {
		return a.translate(e, "delete", a.session(ctx, e, "delete", "delete").Where("id = ?", id).Delete(map[string]any{}).Error)
	})
}

// DeleteWhere removes every row matching p in one statement and reports the count.
func (a *Adapter) DeleteWhere(ctx context.Context, e mapping.Entity, p adapter.Predicate) (int64, error) {
	if p == nil {
		return 0, types.NewValidationError("", "refusing to delete without a predicate")
	}
	where, err := a.compile(e, p)
	if err != nil {
		return 0, err
	}
	var affected int64
	err = adapter.Call(ctx, a.policy, backend, e, "delete_where", func(ctx context.Context) error {
		res := a.session(ctx, e, "delete", "delete_where").Where(where).Delete(map[string]any{})
		affected = res.RowsAffected
		return a.translate(e, "delete_where", res.Error)
	})
	return affected, err
}

// Ping implements adapter.Adapter.
func (a *Adapter) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return adapter.Call(ctx, a.policy, backend, "", "ping", func(ctx context.Context) error {
		return a.translate("", "ping", sqlDB.PingContext(ctx))
	})
}

// Close implements adapter.Adapter.
func (a *Adapter) Close() error {
	return database.Close(a.db)
}

func (a *Adapter) decode(e mapping.Entity, row map[string]any) (adapter.Record, error) {
	fields, err := a.table.DecodeFields(e, backend, row)
	if err != nil {
		return adapter.Record{}, err
	}
	var id string
	switch v := row["id"].(type) {
	case string:
		id = v
	case []byte:
		id = string(v)
	default:
		id = fmt.Sprint(v)
	}
	return adapter.Record{ID: id, Fields: fields}, nil
}

// compile turns a predicate into a parameterized gorm clause expression.
func (a *Adapter) compile(e mapping.Entity, p adapter.Predicate) (clause.Expression, error) {
	switch t := p.(type) {
	case nil:
		return nil, nil

	case adapter.Eq:
		term, v, err := a.resolve(e, t.Field, t.Value)
		if err != nil {
			return nil, err
		}
		return clause.Eq{Column: clause.Column{Name: term.FilterColumn()}, Value: v}, nil

	case adapter.Range:
		term, from, err := a.resolve(e, t.Field, t.From)
		if err != nil {
			return nil, err
		}
		_, to, err := a.resolve(e, t.Field, t.To)
		if err != nil {
			return nil, err
		}
		col := clause.Column{Name: term.FilterColumn()}
		var exprs []clause.Expression
		if from != nil {
			exprs = append(exprs, clause.Gte{Column: col, Value: from})
		}
		if to != nil {
			exprs = append(exprs, clause.Lte{Column: col, Value: to})
		}
		if len(exprs) == 0 {
			return nil, nil
		}
		return clause.And(exprs...), nil

	case adapter.And, adapter.Or:
		var subs []adapter.Predicate
		if and, ok := t.(adapter.And); ok {
			subs = and
		} else {
			subs = t.(adapter.Or)
		}
		var exprs []clause.Expression
		for _, sub := range subs {
			expr, err := a.compile(e, sub)
			if err != nil {
				return nil, err
			}
			if expr != nil {
				exprs = append(exprs, expr)
			}
		}
		if len(exprs) == 0 {
			return nil, nil
		}
		if _, ok := t.(adapter.Or); ok {
			return clause.Or(exprs...), nil
		}
		return clause.And(exprs...), nil
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

func (a *Adapter) resolve(e mapping.Entity, field string, value any) (adapter.Term, any, error) {
	term, err := adapter.ResolveTerm(a.table, e, backend, field)
	if err != nil {
		return adapter.Term{}, nil, err
	}
	v, err := term.NormalizeValue(value)
	if err != nil {
		return adapter.Term{}, nil, err
	}
	if v == nil {
		return term, nil, nil
	}
	native, err := term.Mapping.Encoding.Encode(term.Spec, v)
	if err != nil {
		return adapter.Term{}, nil, err
	}
	return term, native, nil
}

// orderBy resolves the ordering and appends id as a tie-breaker, so paging is stable.
func (a *Adapter) orderBy(e mapping.Entity, order []adapter.Order) (clause.OrderBy, error) {
	var by clause.OrderBy
	for _, o := range order {
		term, err := adapter.ResolveOrder(a.table, e, backend, o.Field)
		if err != nil {
			return by, err
		}
		by.Columns = append(by.Columns, clause.OrderByColumn{Column: clause.Column{Name: term.Mapping.Column}, Desc: o.Desc})
	}
	by.Columns = append(by.Columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	return by, nil
}

// translate maps driver errors onto the domain taxonomy.
func (a *Adapter) translate(e mapping.Entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", e, types.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return a.conflict(e, pgErr.ConstraintName+" "+pgErr.Detail, err)
		case pgErr.Code == "23502", pgErr.Code == "23514", pgErr.Code == "22P02",
			pgErr.Code == "22001", pgErr.Code == "22003", pgErr.Code == "22007", pgErr.Code == "22008":
			return types.NewValidationError(pgErr.ColumnName, "%s", pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "40001", pgErr.Code == "40P01",
			strings.HasPrefix(pgErr.Code, "57P"), pgErr.Code == "53300":
			return &types.TransientBackendError{Backend: string(backend), Op: op, Err: err}
		}
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return a.conflict(e, err.Error(), err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &types.TransientBackendError{Backend: string(backend), Op: op, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "duplicate entry"):
		return a.conflict(e, msg, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"), strings.Contains(msg, "bad connection"),
		strings.Contains(msg, "i/o timeout"):
		return &types.TransientBackendError{Backend: string(backend), Op: op, Err: err}
	}
	return err
}

// conflict names the unique field mentioned by the driver, or the first unique field.
func (a *Adapter) conflict(e mapping.Entity, detail string, err error) error {
	detail = strings.ToLower(detail)
	unique := adapter.UniqueFields(a.table, e)
	field := "id"
	for i, spec := range unique {
		if i == 0 {
			field = spec.Name
		}
		if strings.Contains(detail, strings.ToLower(a.table.Column(e, backend, spec.Name))) {
			field = spec.Name
			break
		}
	}
	return &types.ConflictError{Entity: string(e), Field: field, Err: err}
}

func describe(p adapter.Predicate) string {
	if p == nil {
		return "TRUE"
	}
	return p.String()
}
