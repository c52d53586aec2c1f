package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/zapgate/zapgate/internal/adapters/render/status"
	"github.com/zapgate/zapgate/internal/domain"
)

// qrStaleAfter marks the rendered QR payload stale; the network rotates
// QR codes roughly once a minute.
const qrStaleAfter = time.Minute

func newPairCmd(app *app) *cobra.Command {
	var (
		tenant  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair a tenant with the messaging network",
		Long:  "pair opens a connection for the tenant and waits for it to come up. When the session is not yet authenticated the gateway publishes a QR payload to the status document; scan it and run pair again.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			publisher, err := app.newPublisher()
			if err != nil {
				return fmt.Errorf("wire event publisher: %w", err)
			}
			if publisher != nil {
				defer publisher.Close()
			}

			orchestrator, err := app.orchestrator(publisher)
			if err != nil {
				return err
			}

			result, err := runPairingSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context) domain.PairingResult {
				return orchestrator.StartPairing(ctx, domain.TenantID(tenant), timeout)
			})
			if err != nil {
				return err
			}

			if result.State == domain.StateConnected {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "tenant %s is connected\n", tenant)
				return err
			}

			if result.Err != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "pairing did not complete: %s\n", result.Err)
			}

			return writeStatusOutput(cmd, app, domain.TenantID(tenant), false)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant identifier")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-attempt pairing timeout (default from configuration)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app, tenantID domain.TenantID, asJSON bool) error {
	status, err := app.statusRepo.Get(cmd.Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrStatusNotFound) {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "no status recorded for tenant %s\n", tenantID)
			return err
		}
		return fmt.Errorf("load status: %w", err)
	}

	if asJSON {
		return writeStatusJSON(cmd, status)
	}

	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
		Now:          app.now(),
		QRStaleAfter: qrStaleAfter,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
