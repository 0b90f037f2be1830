package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/report"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen <file.csv>",
	Short: "Screen a CSV file and print the selection and trade plans",
	Long: `Loads a CSV export, runs one screening mode and prints the filtered
rows, the selected BUY/SELL symbols and their trade plans.

Modes:
  openHigh     open ≈ high
  openLow      open ≈ low
  openHighLow  open ≈ high and open ≈ low
  full         open ≈ high or low, plus volume surge, close > 200,
               market cap > 10,000 crores and optional --min-gain

Example:
  go run ./cmd/screener screen quotes.csv --mode openLow
  go run ./cmd/screener screen quotes.csv --mode full --min-gain 1 --out filtered.csv
  go run ./cmd/screener screen - --json < quotes.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runScreen,
}

var (
	screenMode    string
	screenMinGain float64
	screenOut     string
	screenJSON    bool
	screenLimit   int
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVar(&screenMode, "mode", "", "openHigh|openLow|openHighLow|full (default: profile)")
	screenCmd.Flags().Float64Var(&screenMinGain, "min-gain", 0, "minimum gain percent for mode full (default: profile)")
	screenCmd.Flags().StringVar(&screenOut, "out", "", "write the filtered rows to this file (.csv, or .pdf for a PDF table)")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print the result as JSON")
	screenCmd.Flags().IntVar(&screenLimit, "limit", 50, "rows to print (0 = all)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	a, err := bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	req := a.defaultRequest()
	if screenMode != "" {
		req.Mode = contracts.Mode(screenMode)
	}
	if cmd.Flags().Changed("min-gain") {
		req.MinGainPct = screenMinGain
	}
	if !req.Mode.IsValid() {
		return fmt.Errorf("invalid mode %q: must be one of openHigh, openLow, openHighLow, full", req.Mode)
	}
	if req.MinGainPct < 0 || math.IsNaN(req.MinGainPct) || math.IsInf(req.MinGainPct, 0) {
		return fmt.Errorf("min-gain must be a number >= 0")
	}

	// 1. Load
	in, name, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	ds, err := a.reader.Load(cmd.Context(), in, name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}

	// 2. Screen + plan
	res, err := a.engine.Run(cmd.Context(), ds, req)
	if err != nil {
		return err
	}

	// 3. Export
	if screenOut != "" {
		if err := exportFile(screenOut, res, ds); err != nil {
			return err
		}
	}

	if screenJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResult(out, ds, res)
	if screenOut != "" {
		PrintSuccess(out, fmt.Sprintf("Exported %d rows to %s", len(res.Rows), screenOut))
	}
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	return f, filepath.Base(path), nil
}

func exportFile(path string, res *contracts.ScreenResult, ds *contracts.Dataset) error {
	if len(res.Rows) == 0 {
		return csvio.ErrNothingToExport
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}

	cols := csvio.ExportHeaders(res.Roles, ds.Headers)
	write := csvio.Write
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		write = func(w io.Writer, cols []string, rows []contracts.LabeledRow) error {
			return report.WritePDF(w, report.DefaultTitle, cols, rows)
		}
	}
	if err := write(f, cols, res.Rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(w io.Writer, ds *contracts.Dataset, res *contracts.ScreenResult) {
	minGain := "-"
	if res.Mode == contracts.ModeFull && res.MinGainPct > 0 {
		minGain = strconv.FormatFloat(res.MinGainPct, 'f', -1, 64) + "%"
	}

	PrintHeader(w, "Opening-extreme screen", [][2]string{
		{"File", ds.Name},
		{"Rows", strconv.Itoa(res.InputCount)},
		{"Mode", res.Mode.String()},
		{"Min gain", minGain},
		{"Duration", res.Duration.String()},
	})

	// Filtered rows
	cols := append(res.Roles.DisplayHeaders(), contracts.LabelHeader)
	rows := make([][]string, 0, len(res.Rows))
	for i, r := range res.Rows {
		if screenLimit > 0 && i >= screenLimit {
			break
		}
		vals := make([]string, len(cols))
		for j, c := range cols {
			if c == contracts.LabelHeader {
				vals[j] = string(r.Label)
				continue
			}
			vals[j] = r.Get(c)
		}
		rows = append(rows, vals)
	}

	fmt.Fprintln(w)
	if len(rows) == 0 {
		PrintInfo(w, "No rows matched")
	} else {
		widths := ColumnWidths(cols, rows)
		PrintTableHeader(w, cols, widths)
		for _, vals := range rows {
			PrintTableRow(w, vals, widths)
		}
		if len(rows) < len(res.Rows) {
			PrintInfo(w, fmt.Sprintf("%d more rows not shown (use --limit 0)", len(res.Rows)-len(rows)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Summary())

	// Exclusions
	if len(res.Filtered) > 0 {
		reasons := make([]string, 0, len(res.Filtered))
		for reason, n := range res.Filtered {
			reasons = append(reasons, fmt.Sprintf("%s: %d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Excluded:")
		PrintList(w, reasons)
	}

	// Trade plans
	fmt.Fprintln(w)
	if len(res.Plans) == 0 {
		PrintWarning(w, "No BUY or SELL candidate selected by the screener")
		return
	}

	planCols := []string{"Symbol", "Side", "Entry", "Stop", "Target", "Risk", "Reward", "R:R", "Chart"}
	planRows := make([][]string, 0, len(res.Plans))
	for _, p := range res.Plans {
		planRows = append(planRows, []string{
			p.Symbol,
			string(p.Side),
			money(p.Entry),
			money(p.Stop),
			money(p.Target),
			money(p.RiskPerShare),
			money(p.RewardPerShare),
			p.RiskReward.String(),
			contracts.ChartURL(p.Symbol),
		})
	}
	widths := ColumnWidths(planCols, planRows)
	widths[len(widths)-1] = maxWidth(planCols[len(planCols)-1], planRows, len(planCols)-1)

	PrintTableHeader(w, planCols, widths)
	for _, vals := range planRows {
		PrintTableRow(w, vals, widths)
	}

	if sym, ok := res.Roles.Header(headers.RoleSymbol); !ok || sym == "" {
		PrintInfo(w, "No symbol column resolved; plans use the first column as the symbol")
	}
}

// maxWidth is the uncapped width of column i
func maxWidth(header string, rows [][]string, i int) int {
	width := len(header)
	for _, r := range rows {
		width = max(width, len(r[i]))
	}
	return width
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
