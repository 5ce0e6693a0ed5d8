package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/fetchform/packages/core/env"
	"github.com/abdul-hamid-achik/fetchform/packages/specfile"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate request documents without sending them",
	Long: `Validate request documents against the request document schema
without resolving variables or sending anything.

Examples:
  fetchform validate upload.yaml
  fetchform validate ./requests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no request documents (.yaml, .yml, .json) found"))
	}

	// variables are not known here; only report which ones a send needs
	resolver := env.NewResolver()

	hasErrors := false
	for _, file := range files {
		if err := specfile.ValidateFile(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)

		if vars, err := specfile.Variables(file, resolver); err == nil && len(vars) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  needs: %v\n", vars)
		}
	}

	if hasErrors {
		return &exitError{code: ExitParseError, err: fmt.Errorf("validation failed"), reported: true}
	}

	return nil
}
