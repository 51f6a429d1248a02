// mapping.go
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

// Package mapping declares, per entity and per backend, how each canonical domain
// field is stored. Every write and read of the adapters goes through this table, so a
// field the ingest contract accepts either has a declared encoding on the active
// backend or the process refuses to start.
package mapping

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/localnerve/wellnessdb/internal/types"
)

// Entity names a domain entity. The value doubles as the relational table name.
type Entity string

const (
	Users              Entity = "users"
	DailyCheckins      Entity = "daily_checkins"
	DailyMetrics       Entity = "daily_metrics"
	WeeklyMetrics      Entity = "weekly_metrics"
	Insights           Entity = "insights"
	MetricPublications Entity = "metric_publications"
)

// Backend names a storage backend.
type Backend string

const (
	Relational Backend = "relational"
	Document   Backend = "document"
)

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{Relational, Document}
}

// ParseBackend accepts the feature flag spellings for a backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "postgres", "postgresql", "sql":
		return Relational, nil
	case "document", "docstore", "airtable", "records":
		return Document, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// ValueType is the canonical Go representation of a field value.
type ValueType int

const (
	TypeString     ValueType = iota // string
	TypeInt                         // int
	TypeFloat                       // float64
	TypeBool                        // bool
	TypeDate                        // time.Time at UTC midnight
	TypeTime                        // time.Time in UTC
	TypeStringList                  // []string
	TypeObject                      // map[string]any
	TypeRef                         // string ID of another entity
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	case TypeTime:
		return "timestamp"
	case TypeStringList:
		return "string list"
	case TypeObject:
		return "object"
	case TypeRef:
		return "ref"
	}
	return "unknown"
}

// IntRange bounds an integer field, inclusive.
type IntRange struct {
	Min, Max int
}

// FieldSpec is the backend-independent declaration of a canonical field.
type FieldSpec struct {
	Name       string
	Type       ValueType
	Required   bool
	Range      *IntRange
	Allowed    []string // canonical enum values; empty for non-enum fields
	Default    any
	Pattern    *regexp.Regexp
	Lower      bool
	Filterable bool
	Unique     bool
	System     bool // maintained by the adapter, never accepted from ingest
	Ref        Entity
}

// FieldMapping declares how a field is stored on one backend.
type FieldMapping struct {
	Column string
	// FilterColumn is queried instead of Column in predicates, for backends whose
	// native column cannot be compared directly (linked records).
	FilterColumn string
	Encoding     Encoding
}

// Fields holds canonical values keyed by canonical field name.
type Fields map[string]any

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type entitySchema struct {
	specs  []FieldSpec
	byName map[string]int
	tables map[Backend]string
	fields map[Backend]map[string]FieldMapping
}

// Table is the static field mapping table. It is immutable after construction.
type Table struct {
	entities map[Entity]*entitySchema
	order    []Entity
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entities: make(map[Entity]*entitySchema)}
}

// Declare registers an entity with its canonical fields and native table names.
func (t *Table) Declare(e Entity, tables map[Backend]string, specs ...FieldSpec) {
	s := &entitySchema{
		specs:  specs,
		byName: make(map[string]int, len(specs)),
		tables: tables,
		fields: make(map[Backend]map[string]FieldMapping),
	}
	for i, spec := range specs {
		s.byName[spec.Name] = i
	}
	t.entities[e] = s
	t.order = append(t.order, e)
}

// Map declares the encoding of one field on one backend.
func (t *Table) Map(e Entity, b Backend, field string, m FieldMapping) {
	s, ok := t.entities[e]
	if !ok {
		s = &entitySchema{byName: map[string]int{}, tables: map[Backend]string{}, fields: map[Backend]map[string]FieldMapping{}}
		t.entities[e] = s
		t.order = append(t.order, e)
	}
	if s.fields[b] == nil {
		s.fields[b] = make(map[string]FieldMapping)
	}
	s.fields[b][field] = m
}

// Entities lists the declared entities in declaration order.
func (t *Table) Entities() []Entity {
	return append([]Entity(nil), t.order...)
}

// TableName returns the native table name of e on b.
func (t *Table) TableName(e Entity, b Backend) string {
	if s, ok := t.entities[e]; ok {
		if name := s.tables[b]; name != "" {
			return name
		}
	}
	return string(e)
}

// Specs returns the canonical field specs of e in declaration order.
func (t *Table) Specs(e Entity) []FieldSpec {
	s, ok := t.entities[e]
	if !ok {
		return nil
	}
	return append([]FieldSpec(nil), s.specs...)
}

// Spec returns the canonical spec of a field.
func (t *Table) Spec(e Entity, field string) (FieldSpec, bool) {
	s, ok := t.entities[e]
	if !ok {
		return FieldSpec{}, false
	}
	i, ok := s.byName[field]
	if !ok {
		return FieldSpec{}, false
	}
	return s.specs[i], true
}

// Lookup resolves a field for use on backend b. Unknown and unmapped fields are
// validation errors naming the field.
func (t *Table) Lookup(e Entity, b Backend, field string) (FieldSpec, FieldMapping, error) {
	spec, ok := t.Spec(e, field)
	if !ok {
		return FieldSpec{}, FieldMapping{}, types.NewValidationError(field, "unknown field for %s", e)
	}
	m, ok := t.entities[e].fields[b][field]
	if !ok {
		return FieldSpec{}, FieldMapping{}, types.NewValidationError(field, "no mapping on the %s backend", b)
	}
	return spec, m, nil
}

// CanonicalFields returns the canonical field names of e.
func (t *Table) CanonicalFields(e Entity) []string {
	specs := t.Specs(e)
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// IngestFields returns the fields external callers may supply for e, excluding
// system-maintained fields and the listed exclusions.
func (t *Table) IngestFields(e Entity, exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, x := range exclude {
		skip[x] = struct{}{}
	}
	var out []string
	for _, s := range t.Specs(e) {
		if s.System {
			continue
		}
		if _, ok := skip[s.Name]; ok {
			continue
		}
		out = append(out, s.Name)
	}
	return out
}

// Validate checks that every declared field has a usable mapping on each of the given
// backends (all backends when none are given). All problems are collected into one
// ConfigurationError.
func (t *Table) Validate(backends ...Backend) error {
	if len(backends) == 0 {
		backends = Backends()
	}

	var problems []string
	for _, e := range t.order {
		s := t.entities[e]
		if len(s.specs) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no canonical fields declared", e))
			continue
		}
		for _, b := range backends {
			mapped := s.fields[b]
			for _, spec := range s.specs {
				m, ok := mapped[spec.Name]
				if !ok {
					problems = append(problems, fmt.Sprintf("%s.%s: no mapping on the %s backend", e, spec.Name, b))
					continue
				}
				if p := checkMapping(b, spec, m); p != "" {
					problems = append(problems, fmt.Sprintf("%s.%s on %s: %s", e, spec.Name, b, p))
				}
			}
			for name := range mapped {
				if _, ok := s.byName[name]; !ok {
					problems = append(problems, fmt.Sprintf("%s.%s: mapped on %s but not declared", e, name, b))
				}
			}
		}
	}

	if len(problems) > 0 {
		return &types.ConfigurationError{Problems: problems}
	}
	return nil
}

func checkMapping(b Backend, spec FieldSpec, m FieldMapping) string {
	if m.Column == "" {
		return "empty column name"
	}
	if m.Encoding == nil {
		return "no encoding"
	}
	switch enc := m.Encoding.(type) {
	case Enum:
		if len(enc.Allowed) == 0 {
			return "enum encoding without allow-list"
		}
		switch spec.Type {
		case TypeString:
		case TypeBool:
			if len(enc.Allowed) != 2 {
				return "enum encoding on a bool field needs exactly a true and a false label"
			}
		default:
			return "enum encoding on a non-string field"
		}
	case WrappedArray:
		if spec.Type != TypeRef && spec.Type != TypeString {
			return "wrapped-array encoding on a non-scalar field"
		}
	case JSONBlob:
		if spec.Type != TypeStringList && spec.Type != TypeObject {
			return "json blob encoding on a scalar field"
		}
	case Scalar:
		if b == Relational && (spec.Type == TypeStringList || spec.Type == TypeObject) {
			return "relational columns cannot hold a list or object as a scalar"
		}
		if b == Document && spec.Type == TypeObject {
			return "record store cells cannot hold an object as a scalar"
		}
	}
	return ""
}
