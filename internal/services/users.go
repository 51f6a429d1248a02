// users.go
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
	"context"
	"errors"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/localnerve/wellnessdb/internal/types"
)

// UserService manages profiles.
type UserService struct {
	a     adapter.Adapter
	table *mapping.Table
}

// NewUserService returns a service writing through a.
func NewUserService(a adapter.Adapter, table *mapping.Table) *UserService {
	return &UserService{a: a, table: table}
}

// CreateUser creates a profile. email is required and unique.
func (s *UserService) CreateUser(ctx context.Context, raw map[string]any) (models.User, error) {
	if err := checkKeys(raw, s.table.IngestFields(mapping.Users)); err != nil {
		return models.User{}, err
	}
	rec, err := s.a.Create(ctx, mapping.Users, toFields(raw))
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}

// GetUser returns the profile of id.
func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	if err := requireID("id", id); err != nil {
		return models.User{}, err
	}
	rec, err := s.a.FindByID(ctx, mapping.Users, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return models.User{}, notFound("user", id, types.ErrNotFound)
		}
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}

// UpdateUser merges partial into the profile. A null value clears an optional field.
// Concurrent updates of the same field are last-write-wins.
func (s *UserService) UpdateUser(ctx context.Context, id string, partial map[string]any) (models.User, error) {
	if err := requireID("id", id); err != nil {
		return models.User{}, err
	}
	if err := checkKeys(partial, s.table.IngestFields(mapping.Users)); err != nil {
		return models.User{}, err
	}
	rec, err := s.a.Update(ctx, mapping.Users, id, toFields(partial))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return models.User{}, notFound("user", id, types.ErrNotFound)
		}
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}
