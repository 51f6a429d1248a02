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

// Package document implements the adapter contract over an Airtable-compatible record
// store REST API.
//
// The record store has no constraints and no transactions. Uniqueness is checked by a
// lookup before writing, so two concurrent creates with the same email can both
// succeed; the relational backend is authoritative for that guarantee.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/localnerve/wellnessdb/internal/utils"
)

const backend = mapping.Document

// Adapter stores entities as records of an Airtable-style base.
type Adapter struct {
	client *client
	table  *mapping.Table
	policy adapter.RetryPolicy
	now    func() time.Time
}

var _ adapter.Adapter = (*Adapter)(nil)

// New returns an adapter for the base described by opts.
func New(opts Options, table *mapping.Table, policy adapter.RetryPolicy) *Adapter {
	return &Adapter{
		client: newClient(opts),
		table:  table,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Backend implements adapter.Adapter.
func (a *Adapter) Backend() mapping.Backend { return backend }

// Create implements adapter.Adapter.
func (a *Adapter) Create(ctx context.Context, e mapping.Entity, fields mapping.Fields) (adapter.Record, error) {
	prepared, err := adapter.PrepareCreate(a.table, e, fields)
	if err != nil {
		return adapter.Record{}, err
	}
	if err := a.checkUnique(ctx, e, "", prepared); err != nil {
		return adapter.Record{}, err
	}
	adapter.StampTimes(a.table, e, prepared, a.now(), true)

	native, err := a.table.EncodeFields(e, backend, prepared)
	if err != nil {
		return adapter.Record{}, err
	}

	var rec wireRecord
	err = adapter.Call(ctx, a.policy, backend, e, "create", func(ctx context.Context) error {
		return a.send(ctx, "create", fiber.MethodPost, a.client.tableURL(a.table.TableName(e, backend), ""),
			nil, map[string]any{"fields": native}, &rec)
	})
	if err != nil {
		return adapter.Record{}, err
	}
	return a.decode(e, rec)
}

// FindByID implements adapter.Adapter.
func (a *Adapter) FindByID(ctx context.Context, e mapping.Entity, id string) (adapter.Record, error) {
	if id == "" {
		return adapter.Record{}, types.NewValidationError("id", "id is required")
	}
	var rec wireRecord
	err := adapter.Call(ctx, a.policy, backend, e, "find", func(ctx context.Context) error {
		return a.send(ctx, "find", fiber.MethodGet, a.client.tableURL(a.table.TableName(e, backend), id), nil, nil, &rec)
	})
	if err != nil {
		return adapter.Record{}, err
	}
	return a.decode(e, rec)
}

// FindOne implements adapter.Adapter.
func (a *Adapter) FindOne(ctx context.Context, e mapping.Entity, p adapter.Predicate) (adapter.Record, error) {
	records, err := a.FindMany(ctx, e, p, nil, 1)
	if err != nil {
		return adapter.Record{}, err
	}
	if len(records) == 0 {
		where := "TRUE"
		if p != nil {
			where = p.String()
		}
		return adapter.Record{}, fmt.Errorf("%s where %s: %w", e, where, types.ErrNotFound)
	}
	return records[0], nil
}

// FindMany implements adapter.Adapter. Pages are followed until the store stops
// returning an offset or the limit is reached.
func (a *Adapter) FindMany(ctx context.Context, e mapping.Entity, p adapter.Predicate, order []adapter.Order, limit int) ([]adapter.Record, error) {
	formula, err := Formula(a.table, e, p)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if formula != "" {
		query.Set("filterByFormula", formula)
	}
	for i, o := range order {
		term, err := adapter.ResolveOrder(a.table, e, backend, o.Field)
		if err != nil {
			return nil, err
		}
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		query.Set(fmt.Sprintf("sort[%d][field]", i), term.Mapping.Column)
		query.Set(fmt.Sprintf("sort[%d][direction]", i), dir)
	}
	if limit > 0 {
		query.Set("maxRecords", strconv.Itoa(limit))
	}
	query.Set("pageSize", strconv.Itoa(a.client.opts.PageSize))

	target := a.client.tableURL(a.table.TableName(e, backend), "")
	var records []adapter.Record
	offset := ""
	for {
		pageQuery := cloneValues(query)
		if offset != "" {
			pageQuery.Set("offset", offset)
		}

		var page listResponse
		err := adapter.Call(ctx, a.policy, backend, e, "find", func(ctx context.Context) error {
			page = listResponse{}
			return a.send(ctx, "find", fiber.MethodGet, target, pageQuery, nil, &page)
		})
		if err != nil {
			return nil, err
		}

		for _, w := range page.Records {
			rec, err := a.decode(e, w)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		if page.Offset == "" || (limit > 0 && len(records) >= limit) {
			break
		}
		offset = page.Offset
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Update implements adapter.Adapter. PATCH only touches the given fields.
func (a *Adapter) Update(ctx context.Context, e mapping.Entity, id string, partial mapping.Fields) (adapter.Record, error) {
	if id == "" {
		return adapter.Record{}, types.NewValidationError("id", "id is required")
	}
	normalized, cleared, err := adapter.PrepareUpdate(a.table, e, partial)
	if err != nil {
		return adapter.Record{}, err
	}
	if err := a.checkUnique(ctx, e, id, normalized); err != nil {
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
	if len(native) == 0 {
		return a.FindByID(ctx, e, id)
	}

	var rec wireRecord
	err = adapter.Call(ctx, a.policy, backend, e, "update", func(ctx context.Context) error {
		return a.send(ctx, "update", fiber.MethodPatch, a.client.tableURL(a.table.TableName(e, backend), id),
			nil, map[string]any{"fields": native}, &rec)
	})
	if err != nil {
		return adapter.Record{}, err
	}
	return a.decode(e, rec)
}

// Delete implements adapter.Adapter. A missing record counts as deleted.
func (a *Adapter) Delete(ctx context.Context, e mapping.Entity, id string) error {
	if id == "" {
		return types.NewValidationError("id", "id is required")
	}
	return adapter.Call(ctx, a.policy, backend, e, "delete", func(ctx context.Context) error {
		err := a.send(ctx, "delete", fiber.MethodDelete, a.client.tableURL(a.table.TableName(e, backend), id), nil, nil, nil)
		if errors.Is(err, types.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Ping implements adapter.Adapter by checking the API host accepts connections.
func (a *Adapter) Ping(ctx context.Context) error {
	return adapter.Call(ctx, a.policy, backend, "", "ping", func(ctx context.Context) error {
		if err := utils.PingServiceContext(ctx, a.client.opts.BaseURL); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &types.TransientBackendError{Backend: string(backend), Op: "ping", Err: err}
		}
		return nil
	})
}

// Close implements adapter.Adapter. The HTTP agent holds no pooled state.
func (a *Adapter) Close() error { return nil }

// send performs one attempt and decodes a 2xx body into out.
func (a *Adapter) send(ctx context.Context, op, method, target string, query url.Values, body, out any) error {
	code, respBody, err := a.client.do(ctx, op, method, target, query, body)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return statusError(code, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("record store: decode %s response: %w", op, err)
	}
	return nil
}

// checkUnique looks for another record holding any unique value in fields.
func (a *Adapter) checkUnique(ctx context.Context, e mapping.Entity, selfID string, fields mapping.Fields) error {
	for _, spec := range adapter.UniqueFields(a.table, e) {
		v, ok := fields[spec.Name]
		if !ok || v == nil {
			continue
		}
		existing, err := a.FindMany(ctx, e, adapter.Eq{Field: spec.Name, Value: v}, nil, 2)
		if err != nil {
			return err
		}
		for _, rec := range existing {
			if rec.ID != selfID {
				return &types.ConflictError{Entity: string(e), Field: spec.Name}
			}
		}
	}
	return nil
}

func (a *Adapter) decode(e mapping.Entity, w wireRecord) (adapter.Record, error) {
	fields, err := a.table.DecodeFields(e, backend, w.Fields)
	if err != nil {
		return adapter.Record{}, err
	}
	// Records created outside the layer carry no Created At cell.
	if spec, ok := a.table.Spec(e, "created_at"); ok && spec.System && fields["created_at"] == nil && w.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.CreatedTime); err == nil {
			fields["created_at"] = t.UTC()
		}
	}
	return adapter.Record{ID: w.ID, Fields: fields}, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

