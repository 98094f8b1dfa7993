// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vital-ai/vital-graph-sub011/cmd/flags"
	"github.com/vital-ai/vital-graph-sub011/pkg/engine"
	"github.com/vital-ai/vital-graph-sub011/pkg/resultshape"
)

// Version is the engine's version, set at build time via -ldflags.
var Version = "development"

var errSpaceRequired = errors.New("--space is required")

func init() {
	viper.SetEnvPrefix("VITALGRAPH")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "vitalgraph",
	Short:        "SPARQL 1.1 query compiler over a Postgres-backed RDF quad store",
	SilenceUsage: true,
	Version:      Version,
}

// NewEngine opens an Engine against the space named by the --prefix and
// --space flags.
func NewEngine(ctx context.Context) (*engine.Engine, error) {
	space := flags.Space()
	if space == "" {
		return nil, errSpaceRequired
	}

	var opts []engine.Option
	if flags.Diagnostic() {
		opts = append(opts, engine.WithDiagnostic())
	}

	return engine.New(ctx, flags.PostgresURL(), flags.Prefix(), space, opts...)
}

// queryLimits builds a resultshape.Limits from the --max-rows and
// --max-memory-mb flags, leaving zero values to the engine's defaults.
func queryLimits() resultshape.Limits {
	return resultshape.Limits{MaxRows: flags.MaxRows(), MaxMemoryMB: flags.MaxMemoryMB()}
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(initSchemaCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(sqlCmd())
	rootCmd.AddCommand(explainCmd())

	return rootCmd.Execute()
}
