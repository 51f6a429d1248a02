// objects.go
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

package migrator

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Kind is the catalog kind of a schema object.
type Kind string

const (
	Function         Kind = "function"
	Trigger          Kind = "trigger"
	View             Kind = "view"
	MaterializedView Kind = "materialized_view"
	Index            Kind = "index"
)

func parseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Function, Trigger, View, MaterializedView, Index:
		return k, nil
	}
	return "", fmt.Errorf("unknown schema object kind %q", s)
}

// SchemaObject is one idempotent DDL statement and the catalog object it creates.
type SchemaObject struct {
	Name string
	Kind Kind
	DDL  string
	File string
}

// Load reads the SQL files of dir in name order. Each file starts with a header line
// of the form "-- name: <object> kind: <kind>".
func Load(fsys fs.FS, dir string) ([]SchemaObject, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	objects := make([]SchemaObject, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		obj, err := parse(name, string(b))
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func parse(file, content string) (SchemaObject, error) {
	sc := bufio.NewScanner(strings.NewReader(content))
	if !sc.Scan() {
		return SchemaObject{}, fmt.Errorf("%s: empty file", file)
	}
	header := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(header, "--") {
		return SchemaObject{}, fmt.Errorf("%s: missing header", file)
	}

	obj := SchemaObject{File: file}
	fields := strings.Fields(strings.TrimPrefix(header, "--"))
	for i := 0; i+1 < len(fields); i += 2 {
		switch fields[i] {
		case "name:":
			obj.Name = fields[i+1]
		case "kind:":
			k, err := parseKind(fields[i+1])
			if err != nil {
				return SchemaObject{}, fmt.Errorf("%s: %w", file, err)
			}
			obj.Kind = k
		}
	}
	if obj.Name == "" || obj.Kind == "" {
		return SchemaObject{}, fmt.Errorf("%s: header needs name and kind", file)
	}

	obj.DDL = strings.TrimSpace(content[len(sc.Text()):])
	if obj.DDL == "" {
		return SchemaObject{}, fmt.Errorf("%s: no DDL", file)
	}
	return obj, nil
}

// presenceQuery returns the catalog query that reports whether an object exists.
func presenceQuery(k Kind) string {
	switch k {
	case Function:
		return `SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`
	case Trigger:
		return `SELECT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = $1 AND NOT tgisinternal)`
	case View:
		return `SELECT EXISTS (SELECT 1 FROM pg_views WHERE viewname = $1)`
	case MaterializedView:
		return `SELECT EXISTS (SELECT 1 FROM pg_matviews WHERE matviewname = $1)`
	case Index:
		return `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = $1)`
	}
	return ""
}
