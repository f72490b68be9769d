package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wellcome-app/wizard/internal/config"
	"github.com/wellcome-app/wizard/internal/logger"
)

var (
	appCtx *app

	natsURL  string
	embedded bool
	simulate bool
)

func Execute() error {
	root := &cobra.Command{
		Use:           "wellcome",
		Short:         "Create and browse WellCome meal events",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags take precedence over the environment and .env.
			if cmd.Flags().Changed("nats") {
				_ = os.Setenv("NATS_URL", natsURL)
			}
			if cmd.Flags().Changed("embedded") && embedded {
				_ = os.Setenv("NATS_EMBEDDED", "true")
			}
			if cmd.Flags().Changed("simulate") && simulate {
				_ = os.Setenv("SUBMIT_SIMULATE", "true")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger.Init(cfg.LogLevel, cfg.LogFormat)

			appCtx, err = newApp(cfg, logger.Logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx != nil {
				appCtx.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&natsURL, "nats", "", "NATS server URL (overrides NATS_URL)")
	root.PersistentFlags().BoolVar(&embedded, "embedded", false, "run an in-process NATS server (dev only)")
	root.PersistentFlags().BoolVar(&simulate, "simulate", false, "simulate submissions instead of storing them")

	root.AddCommand(createCmd(), feedCmd(), catalogCmd())
	return root.Execute()
}
