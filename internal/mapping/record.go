// record.go
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

package mapping

import (
	"github.com/localnerve/wellnessdb/internal/types"
)

// NormalizeFields coerces and validates every value of fields. Keys without a
// canonical declaration are rejected with a ValidationError naming the key; keys are
// checked in sorted order so the reported key is deterministic.
func (t *Table) NormalizeFields(e Entity, fields Fields) (Fields, error) {
	out := make(Fields, len(fields))
	for _, name := range fields.Keys() {
		spec, ok := t.Spec(e, name)
		if !ok {
			return nil, types.NewValidationError(name, "unknown field for %s", e)
		}
		v, err := spec.Normalize(fields[name])
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

// ApplyDefaults fills declared defaults and checks required fields for a full write.
func (t *Table) ApplyDefaults(e Entity, fields Fields) error {
	for _, spec := range t.Specs(e) {
		if _, ok := fields[spec.Name]; ok {
			continue
		}
		if spec.Default != nil {
			fields[spec.Name] = spec.Default
			continue
		}
		if spec.Required {
			return types.NewValidationError(spec.Name, "required field is missing")
		}
	}
	return nil
}

// EncodeFields converts normalized canonical fields into the native column map of
// backend b. A field without a mapping on b fails with a ValidationError naming it,
// so nothing is dropped on the way to the store.
func (t *Table) EncodeFields(e Entity, b Backend, fields Fields) (map[string]any, error) {
	native := make(map[string]any, len(fields))
	for _, name := range fields.Keys() {
		spec, m, err := t.Lookup(e, b, name)
		if err != nil {
			return nil, err
		}
		v, err := m.Encoding.Encode(spec, fields[name])
		if err != nil {
			return nil, err
		}
		native[m.Column] = v
	}
	return native, nil
}

// DecodeFields converts a native column map of backend b back into canonical fields.
// Columns that no mapping names are ignored; absent and null values are omitted,
// except list fields, which always decode to a list.
func (t *Table) DecodeFields(e Entity, b Backend, native map[string]any) (Fields, error) {
	out := make(Fields)
	for _, spec := range t.Specs(e) {
		m, ok := t.entities[e].fields[b][spec.Name]
		if !ok {
			continue
		}
		raw, present := native[m.Column]
		var v any
		if present {
			var err error
			if v, err = m.Encoding.Decode(spec, raw); err != nil {
				return nil, err
			}
		}
		if v == nil && spec.Default != nil {
			v = spec.Default
		}
		// Empty lists are stored as blank cells on the record store.
		if v == nil && spec.Type == TypeStringList {
			v = []string{}
		}
		if v != nil {
			out[spec.Name] = v
		}
	}
	return out, nil
}

// Column returns the native column of a field, or "" when it is not mapped.
func (t *Table) Column(e Entity, b Backend, field string) string {
	s, ok := t.entities[e]
	if !ok {
		return ""
	}
	return s.fields[b][field].Column
}
