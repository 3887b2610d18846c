package cmd

import (
	"fmt"

	"remittance-reconciliation-service/cmd/reconciler/config"
	"remittance-reconciliation-service/internal/canonical"
	"remittance-reconciliation-service/internal/columns"
	"remittance-reconciliation-service/internal/reconciler"
	"remittance-reconciliation-service/internal/server"
	"remittance-reconciliation-service/internal/store"
	"remittance-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP server",
	Long: `Serve exposes reconciliation over HTTP. Deposit exports are
uploaded to POST /api/reconcile/upload and matched against the unpaid
invoices stored in the configured database.

Authentication is enabled by setting an API key; clients then send it in
the X-API-Key header. The acting account comes from the X-Account-ID
header and falls back to the configured default.

Examples:
  reconciler serve --listen :8080 \
    --database-dsn "host=localhost user=app dbname=billing sslmode=disable"

  RECONCILER_API_KEY=secret reconciler serve \
    --database-dsn "$DATABASE_DSN" \
    --translit-url https://translit.internal \
    --inference-url https://columns.internal`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
	serveCmd.Flags().String("database-dsn", "", "PostgreSQL DSN for the invoice store (required)")
	serveCmd.Flags().String("api-key", "", "API key required from clients (empty disables authentication)")
	serveCmd.Flags().String("default-account", "", "account used when X-Account-ID is absent")
	serveCmd.Flags().StringSlice("allow-origins", nil, "allowed CORS origins")
	serveCmd.Flags().Float64("rate-limit", 0, "upload requests per second")
	serveCmd.Flags().Int("rate-burst", 0, "upload request burst size")

	serveCmd.Flags().Float64Var(&completeThreshold, "complete-threshold", 0, "similarity score at which a match completes (default 0.50)")
	serveCmd.Flags().Float64Var(&reviewThreshold, "review-threshold", 0, "similarity score separating the review tiers (default 0.35)")
	serveCmd.Flags().StringVar(&agencyConfig, "agency-config", "", "path to the agency exception table (optional)")

	serveCmd.Flags().String("inference-url", "", "column-inference service endpoint (optional)")
	serveCmd.Flags().String("inference-api-key", "", "column-inference service API key")
	serveCmd.Flags().String("translit-url", "", "transliteration service endpoint (optional)")
	serveCmd.Flags().String("translit-api-key", "", "transliteration service API key")

	for _, key := range []string{
		"listen", "database-dsn", "api-key", "default-account",
		"allow-origins", "rate-limit", "rate-burst",
		"complete-threshold", "review-threshold", "agency-config",
		"inference-url", "inference-api-key", "translit-url", "translit-api-key",
	} {
		viper.BindPFlag(key, serveCmd.Flags().Lookup(key))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logger.NewLogger(logger.ServerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetGlobalLogger(log)

	dsn := viper.GetString("database-dsn")
	if dsn == "" {
		return fmt.Errorf("database-dsn is required")
	}

	invoiceStore, err := store.NewGormStore(dsn)
	if err != nil {
		return err
	}

	agencies, err := config.LoadAgencyTable(viper.GetString("agency-config"))
	if err != nil {
		return err
	}

	matchingConfig := config.CreateMatchingConfig(
		viper.GetFloat64("complete-threshold"),
		viper.GetFloat64("review-threshold"),
		agencies,
	)
	runConfig := config.CreateReconcilerConfig(matchingConfig)

	var inferrer columns.Inferrer
	if client, err := config.CreateInferenceClient(); err != nil {
		return err
	} else if client != nil {
		inferrer = client
	}

	var transliterator canonical.Transliterator
	if client, err := config.CreateTranslitClient(); err != nil {
		return err
	} else if client != nil {
		transliterator = client
	}

	service, err := reconciler.NewService(runConfig, invoiceStore, inferrer, transliterator)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	serverConfig := config.CreateServerConfig()
	srv, err := server.New(serverConfig, service)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.WithField("addr", serverConfig.ListenAddr).Info("starting reconciliation server")
	return srv.Run()
}
