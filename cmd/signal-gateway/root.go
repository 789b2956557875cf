package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fpt/signal-gateway/internal/gateway"
	sig "github.com/fpt/signal-gateway/internal/signal"
	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

func newRootCmd() *cobra.Command {
	v := gateway.NewViper()

	cmd := &cobra.Command{
		Use:          "signal-gateway",
		Short:        "Bridge Signal conversations through a signal-cli-rest-api gateway",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGateway(cmd.Context(), v)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: ./.signal-gateway/config.yaml or $HOME/.signal-gateway/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("url", "", "Base URL of the REST gateway")
	cmd.PersistentFlags().String("bot-number", "", "Phone number of the bot account")
	cmd.PersistentFlags().Int("poll-interval", 0, "Polling interval in seconds")
	cmd.PersistentFlags().Bool("use-json-rpc", false, "Receive over the websocket stream instead of polling")
	cmd.Flags().String("metrics-addr", "", "Address for /metrics and /healthz (empty disables)")

	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("signal.url", cmd.PersistentFlags().Lookup("url"))
	_ = v.BindPFlag("signal.bot-number", cmd.PersistentFlags().Lookup("bot-number"))
	_ = v.BindPFlag("signal.poll-interval", cmd.PersistentFlags().Lookup("poll-interval"))
	_ = v.BindPFlag("signal.use-json-rpc", cmd.PersistentFlags().Lookup("use-json-rpc"))
	_ = v.BindPFlag("metrics-addr", cmd.Flags().Lookup("metrics-addr"))

	cmd.AddCommand(newCheckConfigCmd(v))
	cmd.AddCommand(newSendCmd(v))
	return cmd
}

// loadConfig reads the file, applies flag and environment overrides and validates.
func loadConfig(v *viper.Viper) (*gateway.GatewayConfig, error) {
	cfg, err := gateway.LoadGatewayConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *gateway.GatewayConfig) *pkgLogger.Logger {
	level := pkgLogger.LogLevel(cfg.LogLevel)
	pkgLogger.SetGlobalLoggerWithConsoleWriter(level, os.Stdout)
	return pkgLogger.Default
}

func runGateway(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		reportConfigError(err)
		return err
	}
	logger := newLogger(cfg)

	gw, err := gateway.NewGateway(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("signal-gateway starting...")
	fmt.Printf("  Gateway: %s\n", cfg.Signal.URL)
	fmt.Printf("  Number:  %s\n", cfg.Signal.Bot())
	fmt.Printf("  Mode:    %s\n", describeMode(&cfg.Signal))
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics: %s\n", cfg.MetricsAddr)
	}
	if cfg.Heartbeat.Enabled {
		fmt.Printf("  Heartbeat: %s to %s\n", cfg.Heartbeat.Interval, cfg.Heartbeat.Room)
	}
	fmt.Println()

	if err := gw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.InfoWithIntention(pkgLogger.IntentionCancel, "Gateway stopped")
	return nil
}

// reportConfigError adds a hint when no usable config file was found.
// Cobra prints the error itself.
func reportConfigError(err error) {
	var cfgErr *sig.ConfigError
	if errors.As(err, &cfgErr) {
		return
	}
	fmt.Fprintf(os.Stderr, "Create a config file or specify --config path\n")
}
