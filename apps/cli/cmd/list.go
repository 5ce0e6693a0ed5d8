package cmd

import (
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/fetchform/packages/http"
	"github.com/abdul-hamid-achik/fetchform/packages/specfile"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the requests described by request documents",
	Long: `List the method, target and body encoding of each request document
without sending anything. Variables from --env-file and --var are applied.

Examples:
  fetchform list upload.yaml
  fetchform list ./requests/ --var userId=42`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("FETCHFORM_ENV_FILE", ""), "Path to .env file for variable interpolation (env: FETCHFORM_ENV_FILE)")
	listCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Template variable as key=value (repeatable)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no request documents (.yaml, .yml, .json) found"))
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	resolver, err := newResolver(logger)
	if err != nil {
		return err
	}

	for _, file := range files {
		doc, err := specfile.Load(file, resolver)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			continue
		}

		spec := http.Normalize(doc.Request)
		name := doc.Name
		if name == "" {
			name = file
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s %s\n", name, spec.Method, spec.URL())
		if strategy := spec.Strategy(); strategy != http.BodyNone {
			fmt.Fprintf(cmd.OutOrStdout(), "  body: %s (%d fields)\n", strategy, len(spec.Body))
		}
	}

	return nil
}
