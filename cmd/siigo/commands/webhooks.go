package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// NewWebhooksCommand creates the webhooks command group
func NewWebhooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook"},
		Short:   "Manage webhook subscriptions",
		Long:    "List, create, replace and delete Siigo webhook subscriptions",
	}

	cmd.AddCommand(newWebhooksListCommand())
	cmd.AddCommand(newWebhooksGetCommand())
	cmd.AddCommand(newWebhooksCreateCommand())
	cmd.AddCommand(newWebhooksUpsertCommand())
	cmd.AddCommand(newWebhooksDeleteCommand())
	cmd.AddCommand(newWebhooksTypesCommand())

	return cmd
}

func newWebhooksListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		Long:  "List the webhook subscriptions of the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			webhooks, err := client.Webhooks().List(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list webhooks: %w", err)
			}

			if len(webhooks) == 0 && isTableOutput() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No webhooks found")

				return nil
			}

			return renderOutput(cmd.OutOrStdout(), webhooks, func(table *tablewriter.Table) error {
				table.Header("ID", "Topic", "URL", "Active", "Created")

				for _, webhook := range webhooks {
					err := table.Append(webhook.ID, webhook.Topic, webhook.URL, yesNo(webhook.Active), formatTime(webhook.CreatedAt))
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}
}

func newWebhooksGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE",
		Short: "Get the webhook subscribed to a type",
		Long:  "Display the webhook subscription for a webhook type such as STOCK_UPDATE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			webhookType, err := siigo.ParseWebhookType(args[0])
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			webhook, err := client.Webhooks().Select(commandContext(cmd), webhookType)
			if err != nil {
				return fmt.Errorf("failed to get webhook: %w", err)
			}

			return renderWebhook(cmd, webhook)
		},
	}
}

func newWebhooksCreateCommand() *cobra.Command {
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "create TYPE URL",
		Short: "Subscribe a URL to a webhook type",
		Long:  "Create a webhook subscription delivering events of TYPE to URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			webhookType, err := siigo.ParseWebhookType(args[0])
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			var opts []siigo.RequestOption
			if idempotencyKey != "" {
				opts = append(opts, siigo.WithIdempotencyKey(idempotencyKey))
			}

			webhook, err := client.Webhooks().Create(commandContext(cmd), webhookType, args[1], opts...)
			if err != nil {
				return fmt.Errorf("failed to create webhook: %w", err)
			}

			return renderWebhook(cmd, webhook)
		},
	}

	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key allowing the request to be retried")

	return cmd
}

func newWebhooksUpsertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upsert TYPE URL",
		Short: "Ensure a webhook type delivers to a URL",
		Long:  "Keep the subscription for TYPE if it already targets URL, otherwise replace it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			webhookType, err := siigo.ParseWebhookType(args[0])
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			webhook, err := client.Webhooks().Upsert(commandContext(cmd), webhookType, args[1])
			if err != nil {
				return fmt.Errorf("failed to upsert webhook: %w", err)
			}

			return renderWebhook(cmd, webhook)
		},
	}
}

func newWebhooksDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete WEBHOOK_ID",
		Short: "Delete a webhook",
		Long:  "Delete a webhook subscription by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			err = client.Webhooks().Delete(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete webhook: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Webhook %s deleted\n", args[0])

			return nil
		},
	}
}

func newWebhooksTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List webhook types",
		Long:  "List the webhook types and the topics they subscribe to",
		RunE: func(cmd *cobra.Command, args []string) error {
			type typeInfo struct {
				Type  string `json:"type"  yaml:"type"`
				Topic string `json:"topic" yaml:"topic"`
			}

			types := make([]typeInfo, 0, len(siigo.WebhookTypes()))

			for _, webhookType := range siigo.WebhookTypes() {
				topic, err := webhookType.Topic()
				if err != nil {
					return err
				}

				types = append(types, typeInfo{Type: string(webhookType), Topic: topic})
			}

			return renderOutput(cmd.OutOrStdout(), types, func(table *tablewriter.Table) error {
				table.Header("Type", "Topic")

				for _, info := range types {
					err := table.Append(info.Type, info.Topic)
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}
}

func renderWebhook(cmd *cobra.Command, webhook *siigo.Webhook) error {
	return renderOutput(cmd.OutOrStdout(), webhook, func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		for _, row := range [][]string{
			{"ID", webhook.ID},
			{"Topic", webhook.Topic},
			{"URL", webhook.URL},
			{"Active", yesNo(webhook.Active)},
			{"Company Key", orNotAvailable(webhook.CompanyKey)},
			{"Created", formatTime(webhook.CreatedAt)},
		} {
			err := table.Append(row[0], row[1])
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	})
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return NotAvailable
	}

	return value.Format(time.RFC3339)
}
