// fields.go
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

package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
)

// checkKeys rejects keys outside allowed. The first unknown key in sorted order is
// named as the field and every unknown key is listed in the reason.
func checkKeys(raw map[string]any, allowed []string) error {
	ok := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		ok[k] = struct{}{}
	}

	var unknown []string
	for k := range raw {
		if _, found := ok[k]; !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return types.NewValidationError(unknown[0], "unrecognized field(s): %s", strings.Join(unknown, ", "))
}

// toFields copies raw into canonical fields.
func toFields(raw map[string]any) mapping.Fields {
	f := make(mapping.Fields, len(raw))
	for k, v := range raw {
		f[k] = v
	}
	return f
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return types.NewValidationError(field, "is required")
	}
	return nil
}

func notFound(what, id string, err error) error {
	return fmt.Errorf("%s %q: %w", what, id, err)
}
