package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arendondiosa/siigo-go/pkg/siigoclient"
)

// NewRootCommand assembles the siigo command tree and binds the global
// flags to viper.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "siigo",
		Short: "Siigo accounting API CLI",
		Long: `A command-line interface for the Siigo accounting API.

Credentials are read from SIIGO_USERNAME, SIIGO_ACCESS_KEY and
SIIGO_PARTNER_ID, from the YAML file given with --config (or SIIGO_CONFIG),
or from the flags below. The access key is prompted for when missing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ConfigureLogging(viper.GetString("log_level"), viper.GetString("log_format"), cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (YAML)")
	flags.String("base-url", "", "API base URL")
	flags.StringP("username", "u", "", "API username")
	flags.String("partner-id", "", "Partner-Id header value")
	flags.StringP("output", "o", OutputFormatTable, "output format (table, json, yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", LogFormatText, "log format (text, json)")
	flags.Bool("debug", false, "log every request and response")

	bindings := map[string]string{
		"config":                 "config",
		siigoclient.KeyBaseURL:   "base-url",
		siigoclient.KeyUsername:  "username",
		siigoclient.KeyPartnerID: "partner-id",
		"output":                 "output",
		"log_level":              "log-level",
		"log_format":             "log-format",
		siigoclient.KeyDebug:     "debug",
	}

	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewCustomersCommand())
	rootCmd.AddCommand(NewWebhooksCommand())

	return rootCmd
}
