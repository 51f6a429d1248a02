// postgres.go
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

package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres connection defaults for the test container. Each can be overridden by
// the environment variable of the same name the server reads.
const (
	defaultPostgresImage   = "postgres:16-alpine"
	defaultDatabase        = "wellness"
	defaultAppUser         = "wellness_app"
	defaultAppPassword     = "wellness_app"
	defaultMaintenanceUser = "wellness_maintenance"
	defaultMaintenancePass = "wellness_maintenance"
)

// Postgres is a running PostgreSQL container with the application and maintenance
// roles created.
type Postgres struct {
	Container testcontainers.Container

	Host                string
	Port                string
	Database            string
	AppUser             string
	AppPassword         string
	MaintenanceUser     string
	MaintenancePassword string
}

// Env returns the server environment that points at this container.
func (p *Postgres) Env() map[string]string {
	return map[string]string{
		"DATA_BACKEND":            "relational",
		"DB_TYPE":                 "postgres",
		"DB_HOST":                 p.Host,
		"DB_PORT":                 p.Port,
		"DB_DATABASE":             p.Database,
		"DB_APP_USER":             p.AppUser,
		"DB_APP_PASSWORD":         p.AppPassword,
		"DB_MAINTENANCE_USER":     p.MaintenanceUser,
		"DB_MAINTENANCE_PASSWORD": p.MaintenancePassword,
	}
}

// URL returns a connection URL for the given role.
func (p *Postgres) URL(user, password string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Terminate stops the container.
func (p *Postgres) Terminate(ctx context.Context) error {
	if p == nil || p.Container == nil {
		return nil
	}
	return p.Container.Terminate(ctx)
}

// StartPostgres starts a PostgreSQL container and creates the maintenance role.
// The app role owns the database; the maintenance role is granted the privileges
// metric rebuilds and schema extras need.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	p := &Postgres{
		Database:            getEnv("DB_DATABASE", defaultDatabase),
		AppUser:             getEnv("DB_APP_USER", defaultAppUser),
		AppPassword:         getEnv("DB_APP_PASSWORD", defaultAppPassword),
		MaintenanceUser:     getEnv("DB_MAINTENANCE_USER", defaultMaintenanceUser),
		MaintenancePassword: getEnv("DB_MAINTENANCE_PASSWORD", defaultMaintenancePass),
	}

	tcpPort, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("DB_IMAGE", defaultPostgresImage),
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"POSTGRES_DB":       p.Database,
				"POSTGRES_USER":     p.AppUser,
				"POSTGRES_PASSWORD": p.AppPassword,
			},
			// The entrypoint restarts the server once after init; wait for the second start.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(tcpPort),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL: %w", err)
	}
	p.Container = container

	host, err := container.Host(ctx)
	if err != nil {
		_ = p.Terminate(ctx)
		return nil, err
	}
	mapped, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = p.Terminate(ctx)
		return nil, err
	}
	p.Host, p.Port = host, mapped.Port()

	if err := p.createMaintenanceRole(ctx); err != nil {
		_ = p.Terminate(ctx)
		return nil, fmt.Errorf("failed to initialize roles: %w", err)
	}
	return p, nil
}

func (p *Postgres) createMaintenanceRole(ctx context.Context) error {
	db, err := sql.Open("postgres", p.URL(p.AppUser, p.AppPassword))
	if err != nil {
		return err
	}
	defer db.Close()

	// Wait for connection to be really ready
	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("PostgreSQL not ready after 30 seconds: %w", err)
	}

	role := pq.QuoteIdentifier(p.MaintenanceUser)
	stmts := []string{
		fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD %s", role, pq.QuoteLiteral(p.MaintenancePassword)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", pq.QuoteIdentifier(p.Database), role),
		fmt.Sprintf("GRANT ALL ON SCHEMA public TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON TABLES TO %s", role),
		// Triggers on the app tables need the owning role.
		fmt.Sprintf("GRANT %s TO %s", pq.QuoteIdentifier(p.AppUser), role),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
