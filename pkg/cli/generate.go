package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGenerateCommand(root *rootOptions) *cobra.Command {
	var (
		download   bool
		outDir     string
		scriptPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "generate APP_ID...",
		Short: "Generate an installer for the given app ids",
		Example: `  kll generate vscode 7zip
  kll generate --download --out ./dist vscode 7zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}

			result, err := client.Generate(cmd.Context(), args)
			if err != nil {
				return err
			}

			if scriptPath != "" {
				if err := os.WriteFile(scriptPath, []byte(result.GeneratedScript), 0644); err != nil {
					return fmt.Errorf("failed to write script: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Build %s (%s)\n", result.BuildID, result.ArtifactKind)
				for _, app := range result.SelectedApps {
					fmt.Fprintf(out, "  - %s (%s)\n", app.Name, app.ID)
				}
				fmt.Fprintf(out, "Download: %s\n", result.DownloadURL)
			}

			if !download {
				return nil
			}
			dest, n, err := client.Download(cmd.Context(), result.BuildID, root.downloadPrefix, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%d bytes)\n", dest, n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&download, "download", false, "Download the installer after generating it")
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to save the installer to")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Also write the generated script to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}
