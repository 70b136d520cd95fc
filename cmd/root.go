// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/config"
	"github.com/xkilldash9x/pwscript/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// ErrScriptFailed is returned by run when at least one line failed.
var ErrScriptFailed = errors.New("script failed")

// dependencies are the collaborators commands create at run time. Tests
// replace them.
type dependencies struct {
	stores storeProvider
}

// NewRootCommand builds the command tree with production dependencies.
func NewRootCommand() *cobra.Command {
	return newRootCmd(dependencies{stores: NewStoreProvider()})
}

func newRootCmd(deps dependencies) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "pwscript",
		Short: "Drive a browser with plain text scripts.",
		Long: `pwscript executes one command per line against a browser tab, records
your interactions as commands, runs and steps through script files, and exports
scripts as Playwright tests. Without a subcommand it starts the interactive shell.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pwscript"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting pwscript", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "pwscript version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./pwscript.yaml)")
	pf.Bool("headless", true, "run the browser without a window")
	pf.String("browser-url", "", "attach to a running browser at this DevTools websocket URL")

	replCmd := newReplCmd(deps)
	root.RunE = replCmd.RunE
	root.Flags().AddFlagSet(replCmd.Flags())

	root.AddCommand(
		replCmd,
		newRunCmd(deps),
		newExportCmd(),
		newRecordCmd(),
		newServeCmd(),
		newReportCmd(deps.stores),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and logs a failure. The caller decides the
// exit code.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	err := NewRootCommand().ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, ErrScriptFailed):
		observability.GetLogger().Debug("Script finished with failures.")
	default:
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	return err
}

// initializeConfig reads the config file and environment into v and binds
// the global flags that override config keys.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pwscript")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PWSCRIPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	bindings := map[string]string{
		"browser.headless":   "headless",
		"browser.remote_url": "browser-url",
	}
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// getConfigFromContext returns the configuration PersistentPreRunE stored.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}
