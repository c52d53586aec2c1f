package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zapgate/zapgate/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		tenant string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a tenant's connection status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeStatusOutput(cmd, app, domain.TenantID(tenant), asJSON)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant identifier")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the status document as JSON")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func writeStatusJSON(cmd *cobra.Command, status domain.ConnectionStatus) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
