// resolve.go
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

package adapter

import (
	"time"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
)

// Term is a predicate field resolved against the mapping of one backend.
type Term struct {
	Spec    mapping.FieldSpec
	Mapping mapping.FieldMapping
}

// FilterColumn is the native column predicates compare against.
func (t Term) FilterColumn() string {
	if t.Mapping.FilterColumn != "" {
		return t.Mapping.FilterColumn
	}
	return t.Mapping.Column
}

// ResolveTerm looks up a predicate or ordering field. Unknown, unmapped and
// non-filterable fields are rejected so a query never silently loses its filter.
// The id pseudo-field always resolves.
func ResolveTerm(t *mapping.Table, e mapping.Entity, b mapping.Backend, field string) (Term, error) {
	if field == "id" {
		return Term{
			Spec:    mapping.FieldSpec{Name: "id", Type: mapping.TypeString, Filterable: true},
			Mapping: mapping.FieldMapping{Column: "id", Encoding: mapping.Scalar{}},
		}, nil
	}
	spec, m, err := t.Lookup(e, b, field)
	if err != nil {
		return Term{}, err
	}
	if !spec.Filterable {
		return Term{}, types.NewValidationError(field, "field is not filterable")
	}
	return Term{Spec: spec, Mapping: m}, nil
}

// ResolveOrder looks up an ordering field. Any mapped field may be used for ordering.
func ResolveOrder(t *mapping.Table, e mapping.Entity, b mapping.Backend, field string) (Term, error) {
	if field == "id" {
		return ResolveTerm(t, e, b, field)
	}
	spec, m, err := t.Lookup(e, b, field)
	if err != nil {
		return Term{}, err
	}
	return Term{Spec: spec, Mapping: m}, nil
}

// NormalizeValue coerces a predicate value to the canonical type of the term.
func (t Term) NormalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return t.Spec.Normalize(v)
}

// PrepareCreate normalizes, defaults and checks fields for a new record.
func PrepareCreate(t *mapping.Table, e mapping.Entity, fields mapping.Fields) (mapping.Fields, error) {
	normalized, err := t.NormalizeFields(e, fields)
	if err != nil {
		return nil, err
	}
	if err := t.ApplyDefaults(e, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// PrepareUpdate normalizes partial fields and rejects clearing a required field.
func PrepareUpdate(t *mapping.Table, e mapping.Entity, partial mapping.Fields) (mapping.Fields, []string, error) {
	normalized, err := t.NormalizeFields(e, partial)
	if err != nil {
		return nil, nil, err
	}
	var cleared []string
	for _, name := range partial.Keys() {
		if _, kept := normalized[name]; kept {
			continue
		}
		spec, _ := t.Spec(e, name)
		if spec.Required {
			return nil, nil, types.NewValidationError(name, "required field cannot be cleared")
		}
		cleared = append(cleared, name)
	}
	return normalized, cleared, nil
}

// UniqueFields lists the fields of e that must be unique.
func UniqueFields(t *mapping.Table, e mapping.Entity) []mapping.FieldSpec {
	var out []mapping.FieldSpec
	for _, s := range t.Specs(e) {
		if s.Unique {
			out = append(out, s)
		}
	}
	return out
}

// StampTimes sets the system-managed timestamps of e to now. created_at is written on
// create only, and a caller-supplied value is kept on create.
func StampTimes(t *mapping.Table, e mapping.Entity, fields mapping.Fields, now time.Time, create bool) {
	for _, spec := range t.Specs(e) {
		if !spec.System || spec.Type != mapping.TypeTime {
			continue
		}
		if spec.Name == "created_at" && !create {
			continue
		}
		if _, ok := fields[spec.Name]; ok && create {
			continue
		}
		fields[spec.Name] = now
	}
}
