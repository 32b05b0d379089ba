package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rdpgo/rdpgo/internal/config"
	"github.com/rdpgo/rdpgo/internal/sockinfo"
	"github.com/rdpgo/rdpgo/internal/transport"
)

func newConnectCommand(root *Root) *cobra.Command {
	var (
		configFile  string
		host        string
		port        string
		useTLS      bool
		useNLA      bool
		metrics     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to an RDP server and summarize the framed PDUs received",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(configFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), settings.ConnectTimeout)
			defer cancel()

			t := transport.New(root.logger, settings)
			if err := t.ConnectTCP(host, port); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer t.Close()

			if useNLA {
				if err := t.UpgradeToNLA(ctx); err != nil {
					return fmt.Errorf("nla: %w", err)
				}
			} else if useTLS {
				if err := t.UpgradeToTLS(ctx); err != nil {
					return fmt.Errorf("tls: %w", err)
				}
			}

			if metrics {
				if conn, ok := t.TCPConn(); ok {
					exp := sockinfo.NewExporter()
					stop := make(chan struct{})
					defer close(stop)
					go func() {
						if err := exp.Run(metricsAddr, conn, 2*time.Second, root.logger, stop); err != nil {
							root.logger.Warn("metrics server stopped", zap.Error(err))
						}
					}()
				}
			}

			summary := newSummaryPrinter(cmd)
			t.SetRecvCallback(func(_ *transport.Transport, buf []byte, _ interface{}) error {
				summary.addPDU(len(buf))
				return nil
			}, nil)
			t.SetBlockingMode(false)

			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					summary.print()
					return nil
				case <-ticker.C:
					if err := t.CheckReadiness(ctx); err != nil {
						summary.print()
						return fmt.Errorf("dispatch: %w", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML settings file")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "RDP server host")
	cmd.Flags().StringVar(&port, "port", "3389", "RDP server port")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "upgrade to TLS after connecting")
	cmd.Flags().BoolVar(&useNLA, "nla", false, "upgrade to TLS and run CredSSP/NLA")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose TCP_INFO diagnostics over HTTP")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9119", "metrics listen address")
	return cmd
}

type summaryPrinter struct {
	cmd   *cobra.Command
	count int
	bytes int
}

func newSummaryPrinter(cmd *cobra.Command) *summaryPrinter {
	return &summaryPrinter{cmd: cmd}
}

func (s *summaryPrinter) addPDU(n int) {
	s.count++
	s.bytes += n
}

func (s *summaryPrinter) print() {
	successColor := color.New(color.FgHiGreen).SprintFunc()

	table := tablewriter.NewWriter(s.cmd.OutOrStdout())
	table.SetHeader([]string{"PDUs dispatched", "Total bytes"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.Append([]string{
		successColor(s.count),
		fmt.Sprintf("%d", s.bytes),
	})
	table.Render()
}
