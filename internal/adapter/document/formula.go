// formula.go
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

package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
)

// Formula compiles a predicate into the record store's formula language. A nil
// predicate compiles to the empty formula, which matches every record.
func Formula(t *mapping.Table, e mapping.Entity, p adapter.Predicate) (string, error) {
	switch q := p.(type) {
	case nil:
		return "", nil

	case adapter.Eq:
		term, v, err := resolve(t, e, q.Field, q.Value)
		if err != nil {
			return "", err
		}
		return eqFormula(term, v), nil

	case adapter.Range:
		term, from, err := resolve(t, e, q.Field, q.From)
		if err != nil {
			return "", err
		}
		_, to, err := resolve(t, e, q.Field, q.To)
		if err != nil {
			return "", err
		}
		var parts []string
		if from != nil {
			parts = append(parts, rangeFormula(term, from, ">="))
		}
		if to != nil {
			parts = append(parts, rangeFormula(term, to, "<="))
		}
		return combine("AND", parts), nil

	case adapter.And:
		return compileAll(t, e, "AND", q)
	case adapter.Or:
		return compileAll(t, e, "OR", q)
	}
	return "", fmt.Errorf("unsupported predicate %T", p)
}

func compileAll(t *mapping.Table, e mapping.Entity, fn string, terms []adapter.Predicate) (string, error) {
	var parts []string
	for _, sub := range terms {
		f, err := Formula(t, e, sub)
		if err != nil {
			return "", err
		}
		if f != "" {
			parts = append(parts, f)
		}
	}
	return combine(fn, parts), nil
}

func combine(fn string, parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return fn + "(" + strings.Join(parts, ", ") + ")"
}

func resolve(t *mapping.Table, e mapping.Entity, field string, value any) (adapter.Term, any, error) {
	term, err := adapter.ResolveTerm(t, e, backend, field)
	if err != nil {
		return adapter.Term{}, nil, err
	}
	v, err := term.NormalizeValue(value)
	if err != nil {
		return adapter.Term{}, nil, err
	}
	return term, v, nil
}

func eqFormula(term adapter.Term, v any) string {
	if term.Spec.Name == "id" {
		return "RECORD_ID() = " + literal(v)
	}
	ref := columnRef(term.FilterColumn())
	// Linked records and their lookups are arrays.
	if term.Mapping.Encoding.Kind() == mapping.KindWrappedArray || term.Mapping.FilterColumn != "" {
		ref = "ARRAYJOIN(" + ref + ")"
	}

	// Bools stored as a yes/no select compare against their label.
	if enc, ok := term.Mapping.Encoding.(mapping.Enum); ok {
		if native, err := enc.Encode(term.Spec, v); err == nil && native != nil {
			v = native
		}
	}

	switch val := v.(type) {
	case nil:
		return ref + " = BLANK()"
	case bool:
		// Unchecked boxes are blank, so false cannot be compared directly.
		if val {
			return ref + " = TRUE()"
		}
		return "NOT(" + ref + ")"
	case time.Time:
		if term.Spec.Type == mapping.TypeDate {
			return "IS_SAME(" + ref + ", " + literal(val.Format(types.DateLayout)) + ", 'day')"
		}
		return "IS_SAME(" + ref + ", " + literal(val.UTC().Format(time.RFC3339Nano)) + ", 'second')"
	}
	return ref + " = " + literal(v)
}

func rangeFormula(term adapter.Term, v any, op string) string {
	ref := columnRef(term.FilterColumn())
	if t, ok := v.(time.Time); ok {
		s := t.UTC().Format(time.RFC3339Nano)
		if term.Spec.Type == mapping.TypeDate {
			s = t.Format(types.DateLayout)
		}
		if op == ">=" {
			return "NOT(IS_BEFORE(" + ref + ", " + literal(s) + "))"
		}
		return "NOT(IS_AFTER(" + ref + ", " + literal(s) + "))"
	}
	return ref + " " + op + " " + literal(v)
}

func columnRef(column string) string {
	return "{" + strings.ReplaceAll(column, "}", `\}`) + "}"
}

// literal renders a scalar as a formula literal. Strings are single-quoted.
func literal(v any) string {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE()"
		}
		return "FALSE()"
	case string:
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
		return "'" + r.Replace(val) + "'"
	}
	return literal(fmt.Sprint(v))
}
