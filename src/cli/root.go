// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/config"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/artifacts"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/builder"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/helper/posix"
	x509chain "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/logger"
)

// OperationPerformed is set once a build has completed and its report was written.
var OperationPerformed bool

// buildOptions holds the flag values of one command instance.
type buildOptions struct {
	configFile string
	outDir     string
	table      bool
	tree       bool
	json       bool
	pkcs12     bool
	logJSON    bool
}

// Execute runs dc-cert-chain with the process arguments.
//
// Parameters:
//   - ctx: Cancels the build between tiers
//   - version: Reported by --version
//   - log: Receives progress lines unless --log-json is given
//
// Returns:
//   - error: Configuration, build or output failure
func Execute(ctx context.Context, version string, log logger.Logger) error {
	return NewRootCommand(version, log).ExecuteContext(ctx)
}

// NewRootCommand creates the dc-cert-chain command.
func NewRootCommand(version string, log logger.Logger) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   posix.ExecutableName("dc-cert-chain"),
		Short: "Digital cinema certificate chain builder",
		Long: `Builds a three-tier digital cinema certificate chain: a self-signed root, an
intermediate signed by the root and a content signing leaf signed by the intermediate.
Every subject carries a dnQualifier derived from its public key. Keys, signing requests,
certificates and the assembled chain file are written to the output directory.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "chain profile in YAML or JSON (env "+config.EnvConfigFile+")")
	flags.StringVarP(&opts.outDir, "out-dir", "o", "", "output directory (env "+config.EnvOutputDir+", default: current directory)")
	flags.BoolVar(&opts.table, "table", false, "print the chain as a markdown table")
	flags.BoolVar(&opts.tree, "tree", false, "print the chain as an ASCII tree")
	flags.BoolVar(&opts.json, "json", false, "print the chain as JSON")
	flags.BoolVar(&opts.pkcs12, "pkcs12", false, "also export the leaf key and chain as "+artifacts.PKCS12File)
	flags.BoolVar(&opts.logJSON, "log-json", false, "write progress as JSON lines to stderr")
	cmd.MarkFlagsMutuallyExclusive("table", "tree", "json")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions, log logger.Logger) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if opts.pkcs12 {
		cfg.PKCS12 = true
	}

	progress := log
	if opts.logJSON {
		jl := logger.NewJSONLogger(cmd.ErrOrStderr())
		defer jl.Sync()
		progress = jl
	}

	res, err := builder.New(cfg, builder.WithLogger(progress)).Build(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.json:
		data, err := res.Chain.ToVisualizationJSON()
		if err != nil {
			return fmt.Errorf("failed to render JSON: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	case opts.table:
		if _, err := fmt.Fprint(out, res.Chain.RenderTable()); err != nil {
			return err
		}
	case opts.tree:
		if _, err := fmt.Fprint(out, res.Chain.RenderASCIITree()); err != nil {
			return err
		}
	default:
		if err := x509chain.Report(out, res.Entries()); err != nil {
			return err
		}
	}

	OperationPerformed = true
	return nil
}
