// inspect_schema.go
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
	"log"
	"os"

	"github.com/localnerve/wellnessdb/internal/database"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// inspect_schema prints the tables GORM creates for the row models and checks that
// every relational column named by the mapping table exists.
func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// Auto-migrate to see what GORM creates
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	// Get the schema
	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
		fmt.Println(schema)
	}

	// Compare against the mapping table
	t := mapping.Default()
	missing := 0
	fmt.Println("\n=== Mapping check (relational) ===")
	for _, e := range t.Entities() {
		table := t.TableName(e, mapping.Relational)
		if !db.Migrator().HasTable(table) {
			fmt.Printf("%s: table %s missing\n", e, table)
			missing++
			continue
		}
		for _, field := range t.CanonicalFields(e) {
			col := t.Column(e, mapping.Relational, field)
			if !db.Migrator().HasColumn(table, col) {
				fmt.Printf("%s.%s: column %s.%s missing\n", e, field, table, col)
				missing++
			}
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
	fmt.Println("ok")
}
