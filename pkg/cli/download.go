package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCommand(root *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "download BUILD_ID",
		Short: "Download a previously generated installer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}

			dest, n, err := client.Download(cmd.Context(), args[0], root.downloadPrefix, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", dest, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to save the installer to")
	return cmd
}
