package config

import (
	"fmt"

	"remittance-reconciliation-service/internal/columns"
	"remittance-reconciliation-service/internal/matcher"
	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/internal/reconciler"
	"remittance-reconciliation-service/internal/reporter"
	"remittance-reconciliation-service/internal/server"
	"remittance-reconciliation-service/internal/translit"

	"github.com/spf13/viper"
)

// LoadAgencyTable reads an agency exception table from a config file.
// The file carries an "agencies" list; each entry names the agency, the
// token searched for in raw payer names, and the expected transfer amount.
// An empty path yields an empty table.
func LoadAgencyTable(path string) ([]models.AgencyException, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read agency config %s: %w", path, err)
	}

	var agencies []models.AgencyException
	if err := v.UnmarshalKey("agencies", &agencies); err != nil {
		return nil, fmt.Errorf("failed to decode agency table: %w", err)
	}

	for i := range agencies {
		if err := agencies[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid agency entry %d: %w", i+1, err)
		}
	}

	return agencies, nil
}

// CreateMatchingConfig creates a matching configuration with the given
// thresholds and agency table. Zero thresholds keep the defaults.
func CreateMatchingConfig(completeThreshold, reviewThreshold float64, agencies []models.AgencyException) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()

	if completeThreshold > 0 {
		config.CompleteThreshold = completeThreshold
	}
	if reviewThreshold > 0 {
		config.ReviewThreshold = reviewThreshold
	}
	config.Agencies = agencies

	return config
}

// CreateReconcilerConfig creates a run configuration around the matching
// settings.
func CreateReconcilerConfig(matchingConfig *matcher.MatchingConfig) *reconciler.Config {
	config := reconciler.DefaultConfig()
	config.MatchingConfig = matchingConfig
	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	parsed, err := reporter.FormatFromString(format)
	if err != nil {
		return nil, err
	}
	config.Format = parsed

	if parsed == reporter.FormatJSON {
		config.ShowSummary = false
	}

	return config, nil
}

// CreateServerConfig builds the HTTP server configuration from viper keys,
// so every setting can come from flags, the config file or RECONCILER_*
// environment variables.
func CreateServerConfig() *server.Config {
	config := server.DefaultConfig()

	if addr := viper.GetString("listen"); addr != "" {
		config.ListenAddr = addr
	}
	config.APIKey = viper.GetString("api-key")
	if account := viper.GetString("default-account"); account != "" {
		config.DefaultAccountID = account
	}
	if origins := viper.GetStringSlice("allow-origins"); len(origins) > 0 {
		config.AllowOrigins = origins
	}
	if rps := viper.GetFloat64("rate-limit"); rps > 0 {
		config.RequestsPerSecond = rps
	}
	if burst := viper.GetInt("rate-burst"); burst > 0 {
		config.Burst = burst
	}

	return config
}

// CreateInferenceClient builds the column-inference client from viper keys.
// Returns nil when no endpoint is configured; the resolver then falls back
// to the default column layout.
func CreateInferenceClient() (*columns.InferenceClient, error) {
	baseURL := viper.GetString("inference-url")
	if baseURL == "" {
		return nil, nil
	}

	return columns.NewInferenceClient(columns.InferenceClientConfig{
		BaseURL: baseURL,
		APIKey:  viper.GetString("inference-api-key"),
		Timeout: viper.GetDuration("inference-timeout"),
	})
}

// CreateTranslitClient builds the transliteration client from viper keys.
// Returns nil when no endpoint is configured; kanji names then match on
// their written form only.
func CreateTranslitClient() (*translit.Client, error) {
	baseURL := viper.GetString("translit-url")
	if baseURL == "" {
		return nil, nil
	}

	return translit.NewClient(translit.ClientConfig{
		BaseURL: baseURL,
		APIKey:  viper.GetString("translit-api-key"),
		Timeout: viper.GetDuration("translit-timeout"),
	})
}
