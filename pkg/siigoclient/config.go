package siigoclient

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "SIIGO"

// Configuration keys. Each one is also read from SIIGO_<KEY>.
const (
	KeyBaseURL     = "base_url"
	KeyUsername    = "username"
	KeyAccessKey   = "access_key"
	KeyPartnerID   = "partner_id"
	KeyTimeout     = "timeout"
	KeyMaxRetries  = "max_retries"
	KeyBackoffBase = "backoff_base"
	KeyBackoffMax  = "backoff_max"
	KeyTokenMargin = "token_margin"
	KeyRateLimit   = "rate_limit"
	KeyRateBurst   = "rate_burst"
	KeyUserAgent   = "user_agent"
	KeyDebug       = "debug"

	// KeyConfigFile names the environment variable pointing at a config file.
	KeyConfigFile = "config"
)

// ErrInvalidConfigValue reports a setting that could not be parsed.
var ErrInvalidConfigValue = errors.New("invalid config value")

var configKeys = []string{
	KeyBaseURL, KeyUsername, KeyAccessKey, KeyPartnerID, KeyTimeout,
	KeyMaxRetries, KeyBackoffBase, KeyBackoffMax, KeyTokenMargin,
	KeyRateLimit, KeyRateBurst, KeyUserAgent, KeyDebug,
}

// NewViper returns a viper instance bound to the SIIGO_ environment
// variables. When path is set, the YAML file it names is read as well;
// environment variables take precedence over the file.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, key := range configKeys {
		err := v.BindEnv(key)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return v, nil
}

// LoadConfig builds a Config from the environment and, optionally, the YAML
// file at path. The result is validated.
func LoadConfig(path string) (*siigo.Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}

	return ConfigFromViper(v)
}

// ConfigFromViper reads the configuration keys from v. Durations accept Go
// duration strings ("30s") or plain seconds, decimals included ("1.5").
func ConfigFromViper(v *viper.Viper) (*siigo.Config, error) {
	var errs []error

	duration := func(key string) time.Duration {
		raw := v.Get(key)
		if raw == nil {
			return 0
		}

		seconds, ok, err := bareSeconds(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))

			return 0
		}

		if ok {
			return time.Duration(seconds * float64(time.Second))
		}

		d, err := cast.ToDurationE(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))

			return 0
		}

		return d
	}

	integer := func(key string) int {
		n, err := cast.ToIntE(v.Get(key))
		if err != nil && v.IsSet(key) {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}

		return n
	}

	config := &siigo.Config{
		BaseURL:     v.GetString(KeyBaseURL),
		Username:    v.GetString(KeyUsername),
		AccessKey:   v.GetString(KeyAccessKey),
		PartnerID:   v.GetString(KeyPartnerID),
		UserAgent:   v.GetString(KeyUserAgent),
		Timeout:     duration(KeyTimeout),
		MaxRetries:  integer(KeyMaxRetries),
		BackoffBase: duration(KeyBackoffBase),
		BackoffMax:  duration(KeyBackoffMax),
		TokenMargin: duration(KeyTokenMargin),
		RateBurst:   integer(KeyRateBurst),
		Debug:       v.GetBool(KeyDebug),
	}

	if v.IsSet(KeyRateLimit) {
		rate, err := cast.ToFloat64E(v.Get(KeyRateLimit))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", KeyRateLimit, err))
		}

		config.RateLimit = rate
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigValue, errors.Join(errs...))
	}

	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// bareSeconds reports whether raw is a plain number and returns it.
func bareSeconds(raw interface{}) (float64, bool, error) {
	var (
		seconds float64
		err     error
	)

	switch value := raw.(type) {
	case string:
		seconds, err = strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false, nil
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		seconds, err = cast.ToFloat64E(value)
		if err != nil {
			return 0, false, err
		}
	default:
		return 0, false, nil
	}

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidConfigValue, raw)
	}

	return seconds, true, nil
}
