// Command rdpgo is a thin CLI harness that exercises the transport
// core end to end: connect, optionally upgrade to TLS/NLA, then drive
// the non-blocking dispatch loop against a live server, counting the
// PDUs and bytes dispatched and printing them as a summary table when
// the run ends.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	rdpgolog "github.com/rdpgo/rdpgo/internal/log"
)

// Root bundles the CLI's shared state: the logger, its backing file,
// and the cobra command tree.
type Root struct {
	logger  *zap.Logger
	logFile *os.File
	cmd     *cobra.Command
}

func newRoot() (*Root, error) {
	logger, logFile, err := rdpgolog.New("rdpgo.log", true)
	if err != nil {
		return nil, fmt.Errorf("rdpgo: failed to start logger: %w", err)
	}

	root := &Root{logger: logger, logFile: logFile}
	root.cmd = &cobra.Command{
		Use:           "rdpgo",
		Short:         "RDP transport-core client harness",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.cmd.AddCommand(newConnectCommand(root))
	root.cmd.AddCommand(newVersionCommand())
	return root, nil
}

func (r *Root) Close() {
	if r.logger != nil {
		_ = r.logger.Sync()
	}
	if r.logFile != nil {
		_ = r.logFile.Close()
	}
}

func main() {
	root, err := newRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer root.Close()

	if err := root.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rdpgo version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

// version is overridden at build time with -ldflags.
var version = "dev"
