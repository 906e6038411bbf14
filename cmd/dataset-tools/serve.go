package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/dataset-tools/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Run the dataset tools as an MCP server.

The server communicates via JSON-RPC over stdin/stdout and exposes
dataset_convert, dataset_count_classes, dataset_plan_split and dataset_split.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(logger)
	return srv.Run(cmd.Context())
}
