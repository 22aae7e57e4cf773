package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/application"
	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/internal/notification/provider"
	"github.com/dmehra2102/marketplace-checkout/pkg/config"
	"github.com/dmehra2102/marketplace-checkout/pkg/logging"
)

func newNotifyCmd() *cobra.Command {
	var (
		to       []string
		subject  string
		text     string
		kind     string
		count    int
		failRate float64
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send test notifications and print the delivery results",
		Long: `Sends through the provider named by --provider (NOTIFY_* variables supply keys).
With --count above 1 the messages go out through the bulk path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pcfg := provider.ConfigFromEnv()
			if kind != "" {
				k, err := domain.ParseKind(kind)
				if err != nil {
					return err
				}
				pcfg.Kind = k
			}
			if cmd.Flags().Changed("fail-rate") {
				pcfg.MockFailureRate = failRate
			}
			d := application.NewDispatcher(logging.New(config.Env("LOG_LEVEL", "warn")), provider.New(pcfg),
				application.WithBaseDelay(delay))

			msgs := make([]domain.Message, max(count, 1))
			for i := range msgs {
				msgs[i] = domain.Message{
					Recipients: to,
					Subject:    subject,
					TextBody:   text,
					Tags:       []string{"checkoutctl"},
				}
				if count > 1 {
					msgs[i].Subject = fmt.Sprintf("%s #%d", subject, i+1)
				}
			}

			var results []domain.Result
			if len(msgs) == 1 {
				results = []domain.Result{d.Send(cmd.Context(), msgs[0])}
			} else {
				results = d.SendBulk(cmd.Context(), msgs)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d notifications failed", failed, len(results))
			}
			return nil
		},
	}
	kinds := make([]string, 0, len(domain.Kinds()))
	for _, k := range domain.Kinds() {
		kinds = append(kinds, string(k))
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "checkoutctl test", "message subject")
	cmd.Flags().StringVar(&text, "text", "This is a test notification.", "plain text body")
	cmd.Flags().StringVar(&kind, "provider", "", "provider: "+strings.Join(kinds, ", ")+" (default NOTIFY_PROVIDER)")
	cmd.Flags().IntVar(&count, "count", 1, "number of messages to send")
	cmd.Flags().Float64Var(&failRate, "fail-rate", provider.DefaultMockFailureRate, "mock provider failure rate")
	cmd.Flags().DurationVar(&delay, "retry-delay", application.DefaultBaseDelay, "wait after the first failed attempt; grows linearly")
	return cmd
}
