package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
	"github.com/arendondiosa/siigo-go/pkg/siigoclient"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	// Output formats.
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	// Log formats.
	LogFormatText = "text"
	LogFormatJSON = "json"

	// JSON formatting.
	defaultJSONIndent = 2

	Yes    = "yes"
	No     = "no"
	Masked = "***"
)

// Common static errors used throughout the commands package.
var (
	ErrUnknownOutputFormat = errors.New("unknown output format")
	ErrUnknownLogFormat    = errors.New("unknown log format")
	ErrFileRequired        = errors.New("a payload file is required (--from-file)")
)

// overridableKeys are client settings a global flag may override.
var overridableKeys = []string{
	siigoclient.KeyBaseURL,
	siigoclient.KeyUsername,
	siigoclient.KeyAccessKey,
	siigoclient.KeyPartnerID,
}

// ConfigureLogging applies the log level and format flags to the logrus
// standard logger.
func ConfigureLogging(level, format string, out io.Writer) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	logrus.SetLevel(parsed)
	logrus.SetOutput(out)

	switch format {
	case "", LogFormatText:
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case LogFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownLogFormat, format)
	}

	return nil
}

// loadClientConfig merges the config file, SIIGO_* variables and global
// flags. The access key is prompted for when missing on a terminal.
func loadClientConfig(in io.Reader, out io.Writer) (*siigo.Config, error) {
	v, err := siigoclient.NewViper(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	for _, key := range overridableKeys {
		if viper.IsSet(key) && viper.GetString(key) != "" {
			v.Set(key, viper.GetString(key))
		}
	}

	if viper.GetBool(siigoclient.KeyDebug) {
		v.Set(siigoclient.KeyDebug, true)
	}

	if v.GetString(siigoclient.KeyAccessKey) == "" {
		accessKey, err := promptAccessKey(in, out)
		if err != nil {
			return nil, err
		}

		v.Set(siigoclient.KeyAccessKey, accessKey)
	}

	config, err := siigoclient.ConfigFromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.Logger = siigo.NewLogrusLogger(logrus.StandardLogger())

	return config, nil
}

// promptAccessKey reads the access key without echo when in is a terminal.
func promptAccessKey(in io.Reader, out io.Writer) (string, error) {
	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return "", nil
	}

	_, _ = fmt.Fprint(out, "Access key: ")

	keyBytes, err := term.ReadPassword(int(file.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read access key: %w", err)
	}

	_, _ = fmt.Fprintln(out)

	return strings.TrimSpace(string(keyBytes)), nil
}

// createClient builds a client from the merged configuration.
func createClient(cmd *cobra.Command) (siigo.Client, error) {
	config, err := loadClientConfig(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	client, err := siigoclient.New(commandContext(cmd), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// commandContext returns the command's context, or a background one when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		return context.Background()
	}

	return ctx
}

// renderOutput writes value in the selected output format. Table output is
// delegated to fill.
func renderOutput(out io.Writer, value interface{}, fill func(table *tablewriter.Table) error) error {
	format := viper.GetString("output")

	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(value)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	case "", OutputFormatTable:
		table := tablewriter.NewWriter(out)

		err := fill(table)
		if err != nil {
			return err
		}

		err = table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOutputFormat, format)
	}
}

// readPayload decodes a JSON or YAML file into target. "-" reads stdin.
func readPayload(path string, stdin io.Reader, target interface{}) error {
	if path == "" {
		return ErrFileRequired
	}

	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(bufio.NewReader(stdin))
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	}

	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	err = json.Unmarshal(data, target)
	if err == nil {
		return nil
	}

	// Not JSON: decode YAML and round-trip through JSON so the json tags apply.
	var generic interface{}

	yamlErr := yaml.Unmarshal(data, &generic)
	if yamlErr != nil {
		return fmt.Errorf("payload is neither JSON nor YAML: %w", yamlErr)
	}

	converted, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("converting YAML payload: %w", err)
	}

	err = json.Unmarshal(converted, target)
	if err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	return nil
}

func yesNo(value bool) string {
	if value {
		return Yes
	}

	return No
}

func orNotAvailable(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}

func isTableOutput() bool {
	format := viper.GetString("output")

	return format == "" || format == OutputFormatTable
}
