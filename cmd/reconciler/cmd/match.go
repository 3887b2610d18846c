package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"remittance-reconciliation-service/cmd/reconciler/config"
	"remittance-reconciliation-service/internal/canonical"
	"remittance-reconciliation-service/internal/columns"
	"remittance-reconciliation-service/internal/parsers"
	"remittance-reconciliation-service/internal/reconciler"
	"remittance-reconciliation-service/internal/reporter"
	"remittance-reconciliation-service/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the match command
var (
	depositFile       string
	invoicesFile      string
	outputFormat      string
	outputFile        string
	agencyConfig      string
	accountID         string
	completeThreshold float64
	reviewThreshold   float64
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a deposit export against an unpaid-invoice snapshot",
	Long: `Match reads a bank deposit export and a CSV snapshot of unpaid
invoices, then proposes an allocation for every usable deposit row. Rows
missing a date, amount or payer name are dropped silently; every kept row
produces exactly one result.

The deposit file may be in UTF-8 or Shift_JIS; the encoding is recovered
automatically. Column inference and kanji transliteration use external
services when their endpoints are configured (--inference-url,
--translit-url or the matching RECONCILER_* environment variables) and
degrade to defaults when they are not.

Examples:
  # Basic run with console output
  reconciler match --deposit-file deposits.csv --invoices-file unpaid.csv

  # JSON report written to a file
  reconciler match --deposit-file deposits.csv --invoices-file unpaid.csv \
    --output-format json --output-file report.json

  # With an agency exception table
  reconciler match --deposit-file deposits.csv --invoices-file unpaid.csv \
    --agency-config agencies.yaml`,

	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVarP(&depositFile, "deposit-file", "d", "", "path to the bank deposit export (required)")
	matchCmd.Flags().StringVarP(&invoicesFile, "invoices-file", "i", "", "path to the unpaid-invoice CSV snapshot (required)")

	matchCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	matchCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	matchCmd.Flags().StringVar(&agencyConfig, "agency-config", "", "path to the agency exception table (optional)")
	matchCmd.Flags().StringVar(&accountID, "account", "default", "account identifier recorded with the run")

	matchCmd.Flags().Float64Var(&completeThreshold, "complete-threshold", 0, "similarity score at which a match completes (default 0.50)")
	matchCmd.Flags().Float64Var(&reviewThreshold, "review-threshold", 0, "similarity score separating the review tiers (default 0.35)")

	matchCmd.Flags().String("inference-url", "", "column-inference service endpoint (optional)")
	matchCmd.Flags().String("translit-url", "", "transliteration service endpoint (optional)")

	matchCmd.MarkFlagRequired("deposit-file")
	matchCmd.MarkFlagRequired("invoices-file")

	viper.BindPFlag("deposit-file", matchCmd.Flags().Lookup("deposit-file"))
	viper.BindPFlag("invoices-file", matchCmd.Flags().Lookup("invoices-file"))
	viper.BindPFlag("output-format", matchCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", matchCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("agency-config", matchCmd.Flags().Lookup("agency-config"))
	viper.BindPFlag("account", matchCmd.Flags().Lookup("account"))
	viper.BindPFlag("complete-threshold", matchCmd.Flags().Lookup("complete-threshold"))
	viper.BindPFlag("review-threshold", matchCmd.Flags().Lookup("review-threshold"))
	viper.BindPFlag("inference-url", matchCmd.Flags().Lookup("inference-url"))
	viper.BindPFlag("translit-url", matchCmd.Flags().Lookup("translit-url"))
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	depositFile = viper.GetString("deposit-file")
	invoicesFile = viper.GetString("invoices-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	agencyConfig = viper.GetString("agency-config")
	accountID = viper.GetString("account")
	completeThreshold = viper.GetFloat64("complete-threshold")
	reviewThreshold = viper.GetFloat64("review-threshold")

	if err := validateFileExists(depositFile, "deposit export"); err != nil {
		return err
	}
	if err := validateFileExists(invoicesFile, "unpaid-invoice snapshot"); err != nil {
		return err
	}
	if agencyConfig != "" {
		if err := validateFileExists(agencyConfig, "agency config"); err != nil {
			return err
		}
	}

	if _, err := reporter.FormatFromString(outputFormat); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Deposit file: %s\n", depositFile)
		fmt.Fprintf(os.Stderr, "Invoices file: %s\n", invoicesFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	agencies, err := config.LoadAgencyTable(agencyConfig)
	if err != nil {
		return err
	}

	matchingConfig := config.CreateMatchingConfig(completeThreshold, reviewThreshold, agencies)
	runConfig := config.CreateReconcilerConfig(matchingConfig)

	invoiceParser, err := parsers.NewInvoiceParser(parsers.DefaultInvoiceParserConfig())
	if err != nil {
		return fmt.Errorf("failed to create invoice parser: %w", err)
	}

	invoices, err := invoiceParser.ParseFile(invoicesFile)
	if err != nil {
		return fmt.Errorf("failed to load unpaid invoices: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Loaded %d unpaid invoices\n", len(invoices))
	}

	payload, err := os.ReadFile(depositFile)
	if err != nil {
		return fmt.Errorf("failed to read deposit export: %w", err)
	}

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

	service, err := reconciler.NewService(runConfig, store.NewMemoryStore(invoices), inferrer, transliterator)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	result, err := service.Run(ctx, accountID, payload)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := generator.Generate(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nRun %s completed in %v.\n", result.RunID, result.Duration)
		fmt.Fprintf(os.Stderr, "Produced %d results against %d unpaid invoices.\n",
			len(result.Results), result.UnpaidInvoiceCount)
	}

	return nil
}
