package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sha1n/heline-indexer/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "heline-indexer"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(ctx context.Context, version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:   programName + " [INDEX_FILE]",
		Short: "heline code indexer",
		Long: "Clones the repositories listed in INDEX_FILE, highlights their source files " +
			"and writes the highlighted chunks to a search backend.",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("index-file", args[0]); err != nil {
					return err
				}
			}
			return app.RunIndex(cmd.Context(), app.DefaultIndexParams(), cmd.Flags(), version)
		},
	}
	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterIndexFlags(rootCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local index over MCP",
		Long:  "Exposes the search_code and read_code tools over a local bleve index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(cmd.Context(), app.DefaultServeParams(), cmd.Flags(), version)
		},
	}
	app.RegisterServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
