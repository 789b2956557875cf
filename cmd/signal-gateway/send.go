package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sig "github.com/fpt/signal-gateway/internal/signal"
)

func newSendCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "send <alias|number|group> <text...>",
		Short: "Send one message through the gateway",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			to, err := dir.Aliases.Resolve(args[0])
			if err != nil {
				return err
			}
			client, err := sig.NewClient(cfg.Signal.URL, cfg.Signal.Bot(), cfg.Signal.RequestTimeout)
			if err != nil {
				return err
			}
			if err := client.SendMessage(cmd.Context(), to, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", to)
			return nil
		},
	}
}
