// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/observability"
	"github.com/xkilldash9x/pwscript/internal/transport"
)

func newServeCmd() *cobra.Command {
	var (
		listen   string
		htmlFile string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept commands for a browser tab over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			sess, err := openSession(ctx, cfg, sessionOptions{htmlFile: htmlFile}, logger)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer sess.Shutdown()

			tcfg := cfg.Transport()
			if listen != "" {
				tcfg.ListenAddr = listen
			}
			logger.Info("Serving commands.", zap.String("addr", tcfg.ListenAddr), zap.String("tab_id", sess.tabID))
			return transport.NewServer(sess.local, tcfg, logger).Run(ctx)
		},
	}

	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides transport.listen_addr)")
	serveCmd.Flags().StringVar(&htmlFile, "html", "", "serve a saved HTML file instead of a browser")
	return serveCmd
}
