package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/generate"
)

// DefaultServer is used when neither --server nor KLL_SERVER is set
const DefaultServer = "http://localhost:3001"

type rootOptions struct {
	server         string
	downloadPrefix string
	timeout        time.Duration
}

func (o *rootOptions) client() (*Client, error) {
	return NewClient(o.server, o.timeout)
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "kll",
		Short:         "KodLaewLong - build Windows installers for a set of apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("KLL_SERVER")
	if server == "" {
		server = DefaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "Server URL (env KLL_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.downloadPrefix, "download-prefix", generate.DefaultDownloadPrefix, "Download route prefix on the server")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newDownloadCommand(opts))

	return cmd
}
