package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zg",
		Short:         "zapgate: tenant messaging sessions and delivery",
		Long:          "zg manages per-tenant messaging-network connections: pair a tenant via QR code, send text messages with phone-variant resolution, inspect connection status, or run the HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newSendCmd(app),
		newPairCmd(app),
		newStatusCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
