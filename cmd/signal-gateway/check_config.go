package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sig "github.com/fpt/signal-gateway/internal/signal"
)

func newCheckConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the resolved aliases and whitelist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				reportConfigError(err)
				return err
			}
			dir, err := sig.NewDirectory(cfg.Signal.Rooms, cfg.Signal.WhitelistedNumbers)
			if err != nil {
				reportConfigError(err)
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gateway:  %s\n", cfg.Signal.URL)
			fmt.Fprintf(out, "number:   %s\n", cfg.Signal.Bot())
			fmt.Fprintf(out, "mode:     %s\n", describeMode(&cfg.Signal))
			fmt.Fprintln(out, "rooms:")
			for _, r := range dir.Aliases.Rooms() {
				fmt.Fprintf(out, "  %s -> %s\n", r.Alias, r.Target)
			}
			if dir.Whitelist.Len() == 0 {
				fmt.Fprintln(out, "whitelist: (empty, everyone allowed)")
				return nil
			}
			fmt.Fprintln(out, "whitelist:")
			for _, id := range dir.Whitelist.IDs() {
				fmt.Fprintf(out, "  %s (%s)\n", dir.Aliases.DisplayName(id), id.Kind())
			}
			return nil
		},
	}
}

// describeMode summarizes the configured delivery mode before the gateway is
// probed.
func describeMode(c *sig.Config) string {
	switch {
	case c.UseJSONRPC:
		return "streaming"
	case c.DeliveryMode == sig.DeliveryAuto:
		return fmt.Sprintf("auto (polling fallback every %s)", c.Poll())
	default:
		return fmt.Sprintf("polling every %s", c.Poll())
	}
}
