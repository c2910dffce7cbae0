package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/arendondiosa/siigo-go/internal/auth"
)

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain an access token",
		Long:  "Authenticate with the configured credentials and display the access token and its expiration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			token, err := client.GetToken(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to obtain token: %w", err)
			}

			type TokenInfo struct {
				AccessToken string `json:"access_token"         yaml:"access_token"`
				ExpiresAt   string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
				ExpiresIn   string `json:"expires_in,omitempty" yaml:"expires_in,omitempty"`
			}

			info := TokenInfo{AccessToken: Masked}
			if show {
				info.AccessToken = token
			}

			expiresAt, err := auth.ParseJWTExpiry(token)
			if err == nil {
				info.ExpiresAt = expiresAt.Format(time.RFC3339)
				info.ExpiresIn = time.Until(expiresAt).Round(time.Second).String()
			}

			return renderOutput(cmd.OutOrStdout(), info, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")

				for _, row := range [][]string{
					{"Access Token", info.AccessToken},
					{"Expires At", orNotAvailable(info.ExpiresAt)},
					{"Expires In", orNotAvailable(info.ExpiresIn)},
				} {
					err := table.Append(row[0], row[1])
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the full token instead of masking it")

	return cmd
}
