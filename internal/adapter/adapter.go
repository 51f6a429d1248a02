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

// Package adapter defines the backend-independent CRUD contract of the data layer.
//
// Two implementations exist: adapter/relational (gorm over the configured SQL
// dialect) and adapter/document (an Airtable-style record store over REST). Both
// encode and decode through the mapping.Table, so callers only ever see canonical
// field names and values.
//
// Concurrent updates to the same record are last-write-wins at field level: an
// update only writes the fields it was given and there is no optimistic locking.
package adapter

import (
	"context"
	"fmt"

	"github.com/localnerve/wellnessdb/internal/mapping"
)

// Record is a persisted entity in canonical form.
type Record struct {
	ID     string
	Fields mapping.Fields
}

// Get returns the canonical value of a field, or nil.
func (r Record) Get(field string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[field]
}

// Adapter executes CRUD and filtered queries against one backend.
type Adapter interface {
	// Backend reports which backend this adapter talks to.
	Backend() mapping.Backend

	// Create persists a new entity and returns it with its generated ID.
	Create(ctx context.Context, e mapping.Entity, fields mapping.Fields) (Record, error)

	// FindByID returns types.ErrNotFound when no record has the ID.
	FindByID(ctx context.Context, e mapping.Entity, id string) (Record, error)

	// FindOne returns the first match of p, or types.ErrNotFound.
	FindOne(ctx context.Context, e mapping.Entity, p Predicate) (Record, error)

	// FindMany returns every match of p in the given order. A limit of 0 is unbounded.
	FindMany(ctx context.Context, e mapping.Entity, p Predicate, order []Order, limit int) ([]Record, error)

	// Update merges partial into the record and returns the stored result.
	Update(ctx context.Context, e mapping.Entity, id string, partial mapping.Fields) (Record, error)

	// Delete removes the record. Deleting a missing ID succeeds.
	Delete(ctx context.Context, e mapping.Entity, id string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases pooled connections.
	Close() error
}

// Order sorts query results by a canonical field.
type Order struct {
	Field string
	Desc  bool
}

// Asc and Desc build single-field orderings.
func Asc(field string) []Order  { return []Order{{Field: field}} }
func Desc(field string) []Order { return []Order{{Field: field, Desc: true}} }

// Predicate is a small boolean expression over filterable fields. A nil Predicate
// matches every record.
type Predicate interface {
	predicate()
	String() string
}

// Eq matches records whose field equals Value.
type Eq struct {
	Field string
	Value any
}

// Range matches From <= field <= To. A nil bound is open.
type Range struct {
	Field    string
	From, To any
}

// And matches when every term matches.
type And []Predicate

// Or matches when any term matches.
type Or []Predicate

func (Eq) predicate()    {}
func (Range) predicate() {}
func (And) predicate()   {}
func (Or) predicate()    {}

func (p Eq) String() string { return fmt.Sprintf("%s = %v", p.Field, p.Value) }

func (p Range) String() string {
	return fmt.Sprintf("%v <= %s <= %v", p.From, p.Field, p.To)
}

func (p And) String() string { return joinTerms("AND", p) }
func (p Or) String() string  { return joinTerms("OR", p) }

func joinTerms(op string, terms []Predicate) string {
	s := "("
	for i, t := range terms {
		if i > 0 {
			s += " " + op + " "
		}
		if t == nil {
			s += "TRUE"
			continue
		}
		s += t.String()
	}
	return s + ")"
}

// Where combines non-nil predicates with AND. It returns nil when none remain.
func Where(terms ...Predicate) Predicate {
	var kept And
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return kept
}

// Walk visits every leaf term of p.
func Walk(p Predicate, fn func(Predicate) error) error {
	switch t := p.(type) {
	case nil:
		return nil
	case And:
		for _, sub := range t {
			if err := Walk(sub, fn); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, sub := range t {
			if err := Walk(sub, fn); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(p)
}

// BulkDeleter is implemented by adapters that can delete by predicate in one call.
type BulkDeleter interface {
	DeleteWhere(ctx context.Context, e mapping.Entity, p Predicate) (int64, error)
}

// DeleteMatching removes every record of e matching p. It uses DeleteWhere when the
// adapter supports it and falls back to one Delete per matching record.
func DeleteMatching(ctx context.Context, a Adapter, e mapping.Entity, p Predicate) (int64, error) {
	if bd, ok := a.(BulkDeleter); ok {
		return bd.DeleteWhere(ctx, e, p)
	}
	records, err := a.FindMany(ctx, e, p, nil, 0)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range records {
		if err := a.Delete(ctx, e, r.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
