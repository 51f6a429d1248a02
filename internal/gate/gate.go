// gate.go
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

// Package gate fixes, once per process, which backend is active and which field set
// it exposes.
package gate

import (
	"errors"
	"sync"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
)

// Capability is an optional backend feature callers may branch on.
type Capability string

const (
	MaterializedViews Capability = "materialized_views"
	Transactions      Capability = "transactions"
	UniqueConstraints Capability = "unique_constraints"
)

var capabilities = map[mapping.Backend][]Capability{
	mapping.Relational: {MaterializedViews, Transactions, UniqueConstraints},
	mapping.Document:   {},
}

// Gate is the resolved backend selection. It is immutable.
type Gate struct {
	Backend mapping.Backend
	Table   *mapping.Table

	// CanonicalFields lists the fields of each entity. The relational column set is
	// canonical; the record store mirrors it.
	CanonicalFields map[mapping.Entity][]string

	flag string
	caps map[Capability]bool
}

// Supports reports whether the active backend has capability c.
func (g *Gate) Supports(c Capability) bool {
	return g.caps[c]
}

// Degraded reports whether the active backend lacks any capability of the relational one.
func (g *Gate) Degraded() bool {
	return len(g.caps) < len(capabilities[mapping.Relational])
}

var (
	once       sync.Once
	current    *Gate
	resolveErr error
	mu         sync.RWMutex
)

// ErrUnresolved is returned by Current before Resolve has succeeded.
var ErrUnresolved = errors.New("schema gate not resolved")

// Resolve validates the mapping table for every backend and fixes the active backend
// from flag. Only the first call does any work; later calls return the first result,
// and a later call with a different flag is logged and ignored.
func Resolve(flag string, table *mapping.Table) (*Gate, error) {
	once.Do(func() {
		g, err := build(flag, table)

		mu.Lock()
		current, resolveErr = g, err
		mu.Unlock()

		if err != nil {
			log.Error().Err(err).Str("flag", flag).Msg("schema gate failed to resolve")
			return
		}
		log.Info().
			Str("backend", string(g.Backend)).
			Bool("degraded", g.Degraded()).
			Msg("schema gate resolved")
	})

	mu.RLock()
	defer mu.RUnlock()
	if resolveErr == nil && current != nil && flag != current.flag {
		if b, err := mapping.ParseBackend(flag); err != nil || b != current.Backend {
			log.Warn().
				Str("requested", flag).
				Str("active", string(current.Backend)).
				Msg("backend flag changed after startup; restart to apply")
		}
	}
	return current, resolveErr
}

// Current returns the resolved gate.
func Current() (*Gate, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, ErrUnresolved
	}
	return current, nil
}

// MustCurrent returns the resolved gate and panics when there is none.
func MustCurrent() *Gate {
	g, err := Current()
	if err != nil {
		panic(err)
	}
	return g
}

func build(flag string, table *mapping.Table) (*Gate, error) {
	if table == nil {
		table = mapping.Default()
	}
	var problems []string

	backend, err := mapping.ParseBackend(flag)
	if err != nil {
		problems = append(problems, "DATA_BACKEND: "+err.Error())
	}

	if err := table.Validate(mapping.Backends()...); err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			problems = append(problems, cfgErr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return nil, &types.ConfigurationError{Problems: problems}
	}

	g := &Gate{
		Backend:         backend,
		Table:           table,
		CanonicalFields: make(map[mapping.Entity][]string),
		flag:            flag,
		caps:            make(map[Capability]bool),
	}
	for _, e := range table.Entities() {
		g.CanonicalFields[e] = table.CanonicalFields(e)
	}
	for _, c := range capabilities[backend] {
		g.caps[c] = true
	}
	return g, nil
}

// reset clears the resolved gate. Tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	current, resolveErr = nil, nil
}
