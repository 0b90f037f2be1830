package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	logFormat   string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Opening-extreme CSV screener",
	Long: `Opening-extreme screener

Screens intraday OHLC CSV exports for candles that opened at their high
(short candidates) or at their low (long candidates), picks one BUY and
one SELL symbol and prints an entry/stop/target plan for each.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen quotes.csv --mode openHigh
  go run ./cmd/screener screen quotes.csv --mode full --min-gain 1.5 --out filtered.csv
  go run ./cmd/screener api
  go run ./cmd/screener schedule start
  go run ./cmd/screener profile validate profiles/nse_opening_extremes.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "screening profile YAML (default: $SCREENER_PROFILE or built-in)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json|console)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
