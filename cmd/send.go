package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapgate/zapgate/internal/domain"
)

func newSendCmd(app *app) *cobra.Command {
	var (
		tenant     string
		to         string
		text       string
		candidates []string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a text message on behalf of a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			publisher, err := app.newPublisher()
			if err != nil {
				return fmt.Errorf("wire event publisher: %w", err)
			}
			if publisher != nil {
				defer publisher.Close()
			}

			dispatcher, err := app.dispatcher(publisher)
			if err != nil {
				return err
			}

			result, err := dispatcher.Send(cmd.Context(), domain.TenantID(tenant), to, text, candidates)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "delivered %s to %s\n", result.MessageID, result.ResolvedJID)
			if result.MatchedCandidate != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "matched candidate: %s\n", result.MatchedCandidate)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant identifier")
	cmd.Flags().StringVar(&to, "to", "", "destination phone number")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringArrayVar(&candidates, "candidate", nil, "extra phone candidates for the existence probe")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}
