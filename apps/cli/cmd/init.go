package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/fetchform/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a config file and an example request document",
	Long: `Create a fetchform config file and an example request document.

This creates:
  - .fetchform.json  - Configuration with the default settings
  - upload.yaml      - Example multipart upload

Examples:
  fetchform init
  fetchform init ./requests --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleDocument = `# Sent with: fetchform send upload.yaml --var userId=42
name: upload avatar
url: https://httpbin.org/post
method: POST
headers:
  Content-Type: multipart/form-data
query:
  user: "{{userId}}"
body:
  requestId: "{{uuid()}}"
  sentAt: "{{now()}}"
  # a local file, read from disk
  notes: file:///etc/hostname
  # a remote resource, downloaded and removed after the request
  avatar: url:///https://httpbin.org/image/png
timeout: 30s
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("cannot create %s: %w", dir, err))
	}

	configFile := filepath.Join(dir, config.ConfigFilenames[0])
	exampleFile := filepath.Join(dir, "upload.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{"User-Agent": "fetchform/" + version}
	if err := cfg.SaveConfig(configFile); err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleDocument), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'fetchform send %s --var userId=42' to send the example.\n", exampleFile)

	return nil
}
