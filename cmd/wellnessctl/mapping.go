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

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect the field mapping table",
}

var mappingCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the mapping table and print it",
	Long: `Check validates that every canonical field has a mapping on every backend, the
same check the server runs at startup, then prints the table.

Example:
  wellnessctl mapping check
  wellnessctl mapping check --json`,
	RunE: runMappingCheck,
}

func init() {
	mappingCmd.AddCommand(mappingCheckCmd)
}

// mappingRow is one field of the printed table.
type mappingRow struct {
	Entity     string `json:"entity"`
	Field      string `json:"field"`
	Type       string `json:"type"`
	Relational string `json:"relational"`
	Document   string `json:"document"`
	Encoding   string `json:"encoding"`
}

func mappingRows(t *mapping.Table) []mappingRow {
	var rows []mappingRow
	for _, e := range t.Entities() {
		for _, spec := range t.Specs(e) {
			row := mappingRow{Entity: string(e), Field: spec.Name, Type: spec.Type.String()}
			if _, m, err := t.Lookup(e, mapping.Relational, spec.Name); err == nil {
				row.Relational = t.TableName(e, mapping.Relational) + "." + m.Column
			}
			if _, m, err := t.Lookup(e, mapping.Document, spec.Name); err == nil {
				row.Document = t.TableName(e, mapping.Document) + "/" + m.Column
				if m.Encoding != nil {
					row.Encoding = m.Encoding.Kind().String()
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func runMappingCheck(cmd *cobra.Command, args []string) error {
	t := mapping.Default()
	if err := t.Validate(mapping.Backends()...); err != nil {
		return fmt.Errorf("mapping table incomplete: %w", err)
	}

	rows := mappingRows(t)
	return printResult(rows, func() {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tFIELD\tTYPE\tRELATIONAL\tDOCUMENT\tENCODING")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Entity, r.Field, r.Type, r.Relational, r.Document, r.Encoding)
		}
		_ = w.Flush()
		fmt.Printf("\n%d fields mapped on %d backends\n", len(rows), len(mapping.Backends()))
	})
}
