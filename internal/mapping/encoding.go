// encoding.go
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
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/wellnessdb/internal/types"
)

// Kind tags the variant of an Encoding.
type Kind int

const (
	KindScalar Kind = iota
	KindEnum
	KindWrappedArray
	KindJSONBlob
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindWrappedArray:
		return "wrapped-array"
	case KindJSONBlob:
		return "json-blob"
	}
	return "unknown"
}

// Encoding converts a canonical value to a backend-native value and back. The set of
// implementations is closed: Scalar, Enum, WrappedArray and JSONBlob.
type Encoding interface {
	Kind() Kind
	Encode(spec FieldSpec, v any) (any, error)
	Decode(spec FieldSpec, raw any) (any, error)
	sealed()
}

// Scalar passes the value through. A non-empty Layout renders dates and timestamps
// as strings, for backends that exchange JSON.
type Scalar struct {
	Layout string
}

func (Scalar) Kind() Kind { return KindScalar }
func (Scalar) sealed()    {}

func (s Scalar) Encode(spec FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t, ok := v.(time.Time); ok && s.Layout != "" {
		return t.UTC().Format(s.Layout), nil
	}
	return v, nil
}

func (Scalar) Decode(spec FieldSpec, raw any) (any, error) {
	return coerce(spec, raw)
}

// Enum restricts a string field to the backend's allow-list. On a bool field the
// allow-list is the pair of labels for true and false, in that order, so that an
// explicit false is stored as a value rather than as a blank cell.
type Enum struct {
	Allowed []string
}

func (Enum) Kind() Kind { return KindEnum }
func (Enum) sealed()    {}

func (e Enum) Encode(spec FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if spec.Type == TypeBool {
		b, ok := v.(bool)
		if !ok {
			return nil, types.NewValidationError(spec.Name, "expected a boolean, got %T", v)
		}
		if b {
			return e.Allowed[0], nil
		}
		return e.Allowed[1], nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, types.NewValidationError(spec.Name, "expected a string, got %T", v)
	}
	if !slices.Contains(e.Allowed, s) {
		return nil, types.NewValidationError(spec.Name, "value %q is not allowed (allowed: %s)", s, strings.Join(e.Allowed, ", "))
	}
	return s, nil
}

func (e Enum) Decode(spec FieldSpec, raw any) (any, error) {
	if spec.Type == TypeBool {
		return e.decodeBool(spec, raw)
	}
	v, err := coerce(spec, raw)
	if err != nil || v == nil {
		return v, err
	}
	s := v.(string)
	if s == "" {
		return nil, nil
	}
	if !slices.Contains(e.Allowed, s) {
		return nil, types.NewValidationError(spec.Name, "stored value %q is not in the allow-list", s)
	}
	return s, nil
}

func (e Enum) decodeBool(spec FieldSpec, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return coerce(spec, raw)
	}
	switch s {
	case "":
		return nil, nil
	case e.Allowed[0]:
		return true, nil
	case e.Allowed[1]:
		return false, nil
	}
	return nil, types.NewValidationError(spec.Name, "stored value %q is not in the allow-list", s)
}

// WrappedArray stores a single value as a one-element array, the shape record
// stores use for linked records.
type WrappedArray struct{}

func (WrappedArray) Kind() Kind { return KindWrappedArray }
func (WrappedArray) sealed()    {}

func (WrappedArray) Encode(spec FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, types.NewValidationError(spec.Name, "expected a string, got %T", v)
	}
	return []string{s}, nil
}

func (WrappedArray) Decode(spec FieldSpec, raw any) (any, error) {
	var items []any
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		for _, s := range r {
			items = append(items, s)
		}
	case []any:
		items = r
	default:
		return nil, types.NewValidationError(spec.Name, "expected an array, got %T", raw)
	}

	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return coerce(spec, items[0])
	}
	return nil, types.NewValidationError(spec.Name, "expected exactly one linked value, got %d", len(items))
}

// JSONBlob serializes lists and objects into a JSON text column.
type JSONBlob struct{}

func (JSONBlob) Kind() Kind { return KindJSONBlob }
func (JSONBlob) sealed()    {}

func (JSONBlob) Encode(spec FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, types.NewValidationError(spec.Name, "cannot serialize: %v", err)
	}
	return string(b), nil
}

func (JSONBlob) Decode(spec FieldSpec, raw any) (any, error) {
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if r == "" {
			return nil, nil
		}
		return decodeJSON(spec, []byte(r))
	case []byte:
		if len(r) == 0 {
			return nil, nil
		}
		return decodeJSON(spec, r)
	}
	// Some drivers hand back already-decoded JSON.
	return coerce(spec, raw)
}

func decodeJSON(spec FieldSpec, b []byte) (any, error) {
	switch spec.Type {
	case TypeStringList:
		var out []string
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, types.NewValidationError(spec.Name, "invalid JSON list: %v", err)
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	case TypeObject:
		var out map[string]any
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, types.NewValidationError(spec.Name, "invalid JSON object: %v", err)
		}
		return out, nil
	}
	return nil, types.NewValidationError(spec.Name, "json blob on %s field", spec.Type)
}

// Normalize coerces a loosely typed input value into the canonical representation
// and checks the field's constraints.
func (spec FieldSpec) Normalize(v any) (any, error) {
	out, err := coerce(spec, v)
	if err != nil || out == nil {
		return out, err
	}

	switch val := out.(type) {
	case string:
		val = strings.TrimSpace(val)
		if spec.Lower {
			val = strings.ToLower(val)
		}
		if len(spec.Allowed) > 0 {
			if val == "" {
				return nil, nil
			}
			if !slices.Contains(spec.Allowed, val) {
				return nil, types.NewValidationError(spec.Name, "value %q is not one of %s", val, strings.Join(spec.Allowed, ", "))
			}
		}
		if spec.Pattern != nil && !spec.Pattern.MatchString(val) {
			return nil, types.NewValidationError(spec.Name, "value %q has an invalid format", val)
		}
		out = val
	case int:
		if spec.Range != nil && (val < spec.Range.Min || val > spec.Range.Max) {
			return nil, types.NewValidationError(spec.Name, "value %d out of range [%d, %d]", val, spec.Range.Min, spec.Range.Max)
		}
	case []string:
		cleaned := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		out = cleaned
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	types.DateLayout,
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// coerce converts driver or JSON values into the canonical Go type of spec.
func coerce(spec FieldSpec, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if p, ok := raw.(*string); ok {
		if p == nil {
			return nil, nil
		}
		raw = *p
	}

	bad := func() (any, error) {
		return nil, types.NewValidationError(spec.Name, "expected %s, got %T", spec.Type, raw)
	}

	switch spec.Type {
	case TypeString, TypeRef:
		switch r := raw.(type) {
		case string:
			return r, nil
		case []byte:
			return string(r), nil
		}
		return bad()

	case TypeInt:
		switch r := raw.(type) {
		case int:
			return r, nil
		case int8:
			return int(r), nil
		case int16:
			return int(r), nil
		case int32:
			return int(r), nil
		case int64:
			return int(r), nil
		case uint8:
			return int(r), nil
		case uint16:
			return int(r), nil
		case uint32:
			return int(r), nil
		case uint64:
			return int(r), nil
		case float32:
			return intFromFloat(spec, float64(r))
		case float64:
			return intFromFloat(spec, r)
		case json.Number:
			n, err := r.Int64()
			if err != nil {
				return nil, types.NewValidationError(spec.Name, "invalid integer %q", r.String())
			}
			return int(n), nil
		case []byte:
			return coerce(spec, string(r))
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(r))
			if err != nil {
				return nil, types.NewValidationError(spec.Name, "invalid integer %q", r)
			}
			return n, nil
		}
		return bad()

	case TypeFloat:
		switch r := raw.(type) {
		case float64:
			return r, nil
		case float32:
			return float64(r), nil
		case int:
			return float64(r), nil
		case int32:
			return float64(r), nil
		case int64:
			return float64(r), nil
		case json.Number:
			f, err := r.Float64()
			if err != nil {
				return nil, types.NewValidationError(spec.Name, "invalid number %q", r.String())
			}
			return f, nil
		case []byte:
			return coerce(spec, string(r))
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
			if err != nil {
				return nil, types.NewValidationError(spec.Name, "invalid number %q", r)
			}
			return f, nil
		}
		return bad()

	case TypeBool:
		switch r := raw.(type) {
		case bool:
			return r, nil
		case int64:
			return r != 0, nil
		case int:
			return r != 0, nil
		case float64:
			return r != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(r))
			if err != nil {
				return nil, types.NewValidationError(spec.Name, "invalid boolean %q", r)
			}
			return b, nil
		}
		return bad()

	case TypeDate:
		switch r := raw.(type) {
		case time.Time:
			return types.TruncateDay(r), nil
		case []byte:
			return coerce(spec, string(r))
		case string:
			if t, err := types.ParseDate(strings.TrimSpace(r)); err == nil {
				return t, nil
			}
			if t, ok := parseTime(strings.TrimSpace(r)); ok {
				return types.TruncateDay(t), nil
			}
			return nil, types.NewValidationError(spec.Name, "invalid date %q", r)
		}
		return bad()

	case TypeTime:
		switch r := raw.(type) {
		case time.Time:
			return r.UTC(), nil
		case []byte:
			return coerce(spec, string(r))
		case string:
			if t, ok := parseTime(strings.TrimSpace(r)); ok {
				return t, nil
			}
			return nil, types.NewValidationError(spec.Name, "invalid timestamp %q", r)
		}
		return bad()

	case TypeStringList:
		switch r := raw.(type) {
		case []string:
			return append([]string{}, r...), nil
		case string:
			// A single value where a list is expected.
			return []string{r}, nil
		case []any:
			out := make([]string, 0, len(r))
			for _, item := range r {
				s, ok := item.(string)
				if !ok {
					return nil, types.NewValidationError(spec.Name, "list items must be strings, got %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
		return bad()

	case TypeObject:
		switch r := raw.(type) {
		case map[string]any:
			return r, nil
		case string:
			return decodeJSON(spec, []byte(r))
		case []byte:
			return decodeJSON(spec, r)
		}
		return bad()
	}

	return nil, fmt.Errorf("field %s: unsupported type %s", spec.Name, spec.Type)
}

func intFromFloat(spec FieldSpec, f float64) (any, error) {
	if f != math.Trunc(f) {
		return nil, types.NewValidationError(spec.Name, "expected an integer, got %v", f)
	}
	return int(f), nil
}
