// main.go
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

// Package main provides wellnessctl, the maintenance CLI for the wellness data layer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/localnerve/wellnessdb/internal/app"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag and WELLNESS_* environment keys.
const (
	keyEnvFile  = "env-file"
	keyBackend  = "backend"
	keyLogLevel = "log-level"
	keyJSON     = "json"
	keyTimeout  = "timeout"
)

var (
	v = viper.New()

	// wired is the data layer, opened by PersistentPreRunE for commands that need it.
	wired *app.App
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wellnessctl",
	Short: "Maintenance commands for the wellness data layer",
	Long: `wellnessctl applies PostgreSQL schema extras, refreshes derived metrics and
materialized views, generates insights and checks the field mapping table.

Configuration comes from the same environment as the server. Flags may also be set
through WELLNESS_* variables, for example WELLNESS_BACKEND=document.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return closeApp() },
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(keyEnvFile, "", "load environment variables from this .env file")
	flags.String(keyBackend, "", "override DATA_BACKEND (relational or document)")
	flags.String(keyLogLevel, "", "override LOG_LEVEL (debug, info, warn, error)")
	flags.Bool(keyJSON, false, "print results as JSON")
	flags.Duration(keyTimeout, 30*time.Minute, "give up after this long")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("WELLNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(mappingCmd)
}

// needsBackend reports whether cmd talks to a backend.
func needsBackend(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == mappingCmd {
			return false
		}
	}
	return cmd.Runnable()
}

// loadConfig reads the server configuration with the CLI overrides applied.
func loadConfig() (*config.Config, error) {
	if file := v.GetString(keyEnvFile); file != "" {
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	if b := v.GetString(keyBackend); b != "" {
		if err := os.Setenv("DATA_BACKEND", b); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl := v.GetString(keyLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, args []string) error {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !needsBackend(cmd) {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	utils.SetLogLevel(cfg.LogLevel)

	wired, err = app.Bootstrap(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open data layer: %w", err)
	}
	return nil
}

func closeApp() error {
	if wired != nil {
		return wired.Close()
	}
	return nil
}

// commandContext bounds a command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.WithTimeout(ctx, v.GetDuration(keyTimeout))
}

// printResult prints v as JSON under --json, otherwise calls human.
func printResult(out any, human func()) error {
	if v.GetBool(keyJSON) {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}
	human()
	return nil
}
